package config

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

const DefaultPostDelay = 30 * time.Second

// Platform selects which social-media API an account posts to.
const (
	PlatformX        = "x"
	PlatformTelegram = "telegram"
)

// Format selects how much of an entry goes into the post payload.
const (
	FormatLink             = "link"
	FormatTitleLink        = "title_link"
	FormatTitleLinkPreview = "title_link_preview"
)

// Credentials is the opaque token set for one account. Which fields are
// required depends on the account platform.
type Credentials struct {
	APIKey            string `yaml:"api_key"`
	APISecret         string `yaml:"api_secret"`
	AccessToken       string `yaml:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret"`

	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Account is one configured posting identity. Immutable after load; a value
// that fails validation is never constructed.
type Account struct {
	Name        string
	Platform    string
	Credentials Credentials
	FeedURLs    []string
	PostDelay   time.Duration
	Format      string
}

// MissingFieldsError reports which required credential fields of an account
// are absent.
type MissingFieldsError struct {
	Account string
	Fields  []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf(
		"account %q is missing required credential fields: %s",
		e.Account,
		strings.Join(e.Fields, ", "),
	)
}

// rawAccount is the YAML/env shape before validation.
type rawAccount struct {
	Name         string      `yaml:"name"`
	Platform     string      `yaml:"platform"`
	Credentials  Credentials `yaml:"credentials"`
	FeedURLs     []string    `yaml:"feed_urls"`
	DelaySeconds *int        `yaml:"delay_seconds"`
	Format       string      `yaml:"format"`
}

func newAccount(raw rawAccount, defaultDelay time.Duration) (Account, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Account{}, fmt.Errorf("account name is empty")
	}

	platform := strings.TrimSpace(raw.Platform)
	if platform == "" {
		platform = PlatformX
	}
	if platform != PlatformX && platform != PlatformTelegram {
		return Account{}, fmt.Errorf("account %q has unknown platform %q", name, platform)
	}

	format := strings.TrimSpace(raw.Format)
	if format == "" {
		format = FormatTitleLink
	}
	if format != FormatLink && format != FormatTitleLink && format != FormatTitleLinkPreview {
		return Account{}, fmt.Errorf("account %q has unknown format %q", name, format)
	}

	feedURLs := make([]string, 0, len(raw.FeedURLs))
	for _, u := range raw.FeedURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		feedURLs = append(feedURLs, u)
	}
	if len(feedURLs) == 0 {
		return Account{}, fmt.Errorf("account %q has no feed URLs", name)
	}

	if missing := missingCredentialFields(platform, raw.Credentials); len(missing) > 0 {
		return Account{}, &MissingFieldsError{Account: name, Fields: missing}
	}

	delay := defaultDelay
	if raw.DelaySeconds != nil {
		if *raw.DelaySeconds < 0 {
			return Account{}, fmt.Errorf("account %q has negative delay_seconds", name)
		}
		delay = time.Duration(*raw.DelaySeconds) * time.Second
	}

	return Account{
		Name:        name,
		Platform:    platform,
		Credentials: raw.Credentials,
		FeedURLs:    feedURLs,
		PostDelay:   delay,
		Format:      format,
	}, nil
}

type credentialField struct {
	name  string
	value string
}

func missingCredentialFields(platform string, creds Credentials) []string {
	var required []credentialField

	switch platform {
	case PlatformTelegram:
		required = []credentialField{
			{"bot_token", creds.BotToken},
			{"chat_id", creds.ChatID},
		}
	default:
		required = []credentialField{
			{"api_key", creds.APIKey},
			{"api_secret", creds.APISecret},
			{"access_token", creds.AccessToken},
			{"access_token_secret", creds.AccessTokenSecret},
		}
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	return missing
}

// SkippedAccount records one configuration record that failed validation and
// will not be processed.
type SkippedAccount struct {
	Name string
	Err  error
}

// LoadResult holds the validated accounts of one configuration source plus
// the records that were rejected.
type LoadResult struct {
	Accounts []Account
	Skipped  []SkippedAccount
}

func buildResult(raws []rawAccount, defaultDelay time.Duration) (*LoadResult, error) {
	res := &LoadResult{}
	seen := make(map[string]struct{}, len(raws))

	for i, raw := range raws {
		account, err := newAccount(raw, defaultDelay)
		if err != nil {
			name := strings.TrimSpace(raw.Name)
			if name == "" {
				name = fmt.Sprintf("account #%d", i+1)
			}
			res.Skipped = append(res.Skipped, SkippedAccount{Name: name, Err: err})
			continue
		}

		if _, ok := seen[account.Name]; ok {
			return nil, fmt.Errorf("duplicate account name %q", account.Name)
		}
		seen[account.Name] = struct{}{}

		res.Accounts = append(res.Accounts, account)
	}

	// Accounts run in a fixed, deterministic order.
	slices.SortFunc(res.Accounts, func(a, b Account) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return res, nil
}
