// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SQLiteAuth implements AuthService against the embedded database,
// minting HS256 access tokens compatible with CurrentUser.
type SQLiteAuth struct {
	db       *sql.DB
	secret   []byte
	tokenTTL time.Duration
}

// NewSQLiteAuth builds an AuthService over the same database as s.
func NewSQLiteAuth(s *SQLite, secret string, tokenTTL time.Duration) *SQLiteAuth {
	if tokenTTL == 0 {
		tokenTTL = time.Hour
	}
	return &SQLiteAuth{db: s.db, secret: []byte(secret), tokenTTL: tokenTTL}
}

// EnsureUser creates the account and its profile if the email is not
// registered yet, otherwise resets the password. Used to bootstrap the
// admin account at startup.
func (a *SQLiteAuth) EnsureUser(ctx context.Context, email, password, name string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var id string
	err = a.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", email).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.New().String()
		if _, err := a.db.ExecContext(ctx,
			"INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)",
			id, email, string(hash)); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if _, err := a.db.ExecContext(ctx,
			"INSERT INTO profiles (id, name) VALUES (?, ?)", id, name); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("look up user: %w", err)
	}

	if _, err := a.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE id = ?", string(hash), id); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// SignIn verifies the credentials and returns the identity with a
// fresh access token.
func (a *SQLiteAuth) SignIn(ctx context.Context, email, password string) (*Identity, string, error) {
	var (
		id   string
		hash string
	)
	err := a.db.QueryRowContext(ctx,
		"SELECT id, password_hash FROM users WHERE email = ?", email).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   id,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(a.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return &Identity{ID: id, Email: email}, signed, nil
}

// CurrentUser validates an access token and resolves the identity it
// carries. Expired or malformed tokens yield ErrInvalidToken.
func (a *SQLiteAuth) CurrentUser(ctx context.Context, accessToken string) (*Identity, error) {
	token, err := jwt.Parse(accessToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}

	// The account may have been removed since the token was minted.
	var exists int
	err = a.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", sub).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	return &Identity{ID: sub, Email: email}, nil
}
