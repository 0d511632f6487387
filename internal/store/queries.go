package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// HasPosted reports whether the link was already posted for the account.
func (s *Store) HasPosted(ctx context.Context, account string, link string) (bool, error) {
	account = strings.TrimSpace(account)
	link = strings.TrimSpace(link)
	if account == "" || link == "" {
		return false, errors.New("account or link is empty")
	}

	query := "select 1 from posted_entries where account = ? and link = ?"

	var one int
	err := s.db.QueryRowContext(ctx, query, account, link).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to execute query: %w", err)
	}

	return true, nil
}

// MarkPosted records the (account, link) pair. Marking an already-marked
// pair has no additional effect.
func (s *Store) MarkPosted(ctx context.Context, account string, link string) error {
	account = strings.TrimSpace(account)
	link = strings.TrimSpace(link)
	if account == "" || link == "" {
		return errors.New("account or link is empty")
	}

	query := "insert or ignore into posted_entries (account, link) values (?, ?)"

	if _, err := s.db.ExecContext(ctx, query, account, link); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}

	return nil
}
