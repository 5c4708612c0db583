package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pulsefeed/pulse/internal/auth/domain"
	"github.com/pulsefeed/pulse/internal/auth/store"
	"github.com/pulsefeed/pulse/pkg/cryptox"
	"github.com/pulsefeed/pulse/pkg/idx"
	"github.com/pulsefeed/pulse/pkg/jwtx"
	"github.com/pulsefeed/pulse/pkg/slogx"
)

// usernameAttempts bounds the generated-username collision retry loop.
const usernameAttempts = 3

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrEmailTaken         = errors.New("email_taken")
	ErrUsernameExhausted  = errors.New("username_exhausted")
)

// SessionService owns the credential and session lifecycle: registration,
// password login, refresh rotation, and revocation.
type SessionService struct {
	Store      store.Store
	Signer     *jwtx.Signer
	Verifier   *jwtx.Verifier
	RefreshTTL time.Duration
}

// VerifyAccessToken checks a signed access token and returns its claims.
func (s *SessionService) VerifyAccessToken(token string) (jwtx.Claims, error) {
	return s.Verifier.Verify(token)
}

// Register creates a new account with a generated username and returns its
// public projection. The email must be unique; the username is derived from
// a fresh ULID so concurrent registrations stay distinct.
func (s *SessionService) Register(ctx context.Context, email, password string) (domain.PublicUser, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	hash, err := cryptox.HashSecret(password)
	if err != nil {
		return domain.PublicUser{}, err
	}

	username, err := s.generateUsername(ctx)
	if err != nil {
		return domain.PublicUser{}, err
	}

	user := domain.User{
		ID:           idx.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			l.Info("registration rejected, email taken", slog.String("email", user.Email))
			return domain.PublicUser{}, ErrEmailTaken
		}
		return domain.PublicUser{}, err
	}

	l.Info("user registered",
		slog.String("user_id", string(user.ID)),
		slog.String("username", user.Username),
	)
	return user.Public(), nil
}

// generateUsername produces a unique username candidate. The candidate is
// time-ordered (ULID) so collisions are rare; a bounded retry loop covers
// the remainder, then we give up rather than spin.
func (s *SessionService) generateUsername(ctx context.Context) (string, error) {
	for i := 0; i < usernameAttempts; i++ {
		candidate := "user" + strings.ToLower(string(idx.New()))
		exists, err := s.Store.Users().UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrUsernameExhausted
}

// Login verifies the password and mints a fresh session: a signed access
// token plus an opaque refresh token whose salted hash is stored as a new
// device row. Every login adds a row; other devices are untouched.
func (s *SessionService) Login(ctx context.Context, email, password string) (domain.AuthOutcome, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthOutcome{}, ErrInvalidCredentials
		}
		return domain.AuthOutcome{}, err
	}

	if err := cryptox.VerifySecret(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			l.Info("login rejected, bad password", slog.String("user_id", string(user.ID)))
			return domain.AuthOutcome{}, ErrInvalidCredentials
		}
		return domain.AuthOutcome{}, err
	}

	outcome, err := s.issueSession(ctx, s.Store, user, time.Now().UTC())
	if err != nil {
		return domain.AuthOutcome{}, err
	}

	l.Info("login succeeded", slog.String("user_id", string(user.ID)))
	return outcome, nil
}

// RefreshToken rotates a refresh token: the presented plaintext is matched
// against the salted hashes of the user's non-expired session rows, the
// matched row is deleted by primary key, and a new token pair is minted.
// The delete and insert share a transaction, and the delete's row count is
// checked, so two concurrent rotations of the same token resolve to exactly
// one winner.
func (s *SessionService) RefreshToken(ctx context.Context, userID idx.ID, presented string) (domain.AuthOutcome, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthOutcome{}, ErrInvalidRefresh
		}
		return domain.AuthOutcome{}, err
	}

	var outcome domain.AuthOutcome
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := matchAndDelete(ctx, tx, userID, presented, now); err != nil {
			return err
		}
		outcome, err = s.issueSession(ctx, tx, user, now)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRefresh) {
			l.Info("refresh rejected", slog.String("user_id", string(userID)))
		}
		return domain.AuthOutcome{}, err
	}

	l.Info("refresh token rotated", slog.String("user_id", string(userID)))
	return outcome, nil
}

// Logout revokes the single session whose hash matches the presented
// refresh token. No new tokens are issued.
func (s *SessionService) Logout(ctx context.Context, userID idx.ID, presented string) error {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		return matchAndDelete(ctx, tx, userID, presented, now)
	})
	if err != nil {
		return err
	}

	l.Info("device logged out", slog.String("user_id", string(userID)))
	return nil
}

// LogoutAllDevices deletes every session row for the user, expired or not,
// and reports how many devices were signed out. Zero is a valid outcome.
func (s *SessionService) LogoutAllDevices(ctx context.Context, userID idx.ID) (int64, error) {
	l := slogx.FromContext(ctx)

	n, err := s.Store.RefreshSessions().DeleteAllUserRefreshSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	l.Info("all devices logged out",
		slog.String("user_id", string(userID)),
		slog.Int64("devices", n),
	)
	return n, nil
}

// issueSession mints an access token and a fresh opaque refresh token, and
// persists the refresh token's salted hash as a new device row on st (which
// may be a transaction).
func (s *SessionService) issueSession(ctx context.Context, st store.Store, user domain.User, now time.Time) (domain.AuthOutcome, error) {
	access, err := s.Signer.Sign(string(user.ID), user.Email, user.Role, now)
	if err != nil {
		return domain.AuthOutcome{}, err
	}

	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.AuthOutcome{}, err
	}
	refreshHash, err := cryptox.HashSecret(refresh)
	if err != nil {
		return domain.AuthOutcome{}, err
	}

	session := domain.RefreshSession{
		ID:        idx.New(),
		UserID:    user.ID,
		TokenHash: refreshHash,
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
	}
	if err := st.RefreshSessions().CreateRefreshSession(ctx, session); err != nil {
		return domain.AuthOutcome{}, err
	}

	return domain.AuthOutcome{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user.Public(),
	}, nil
}

// matchAndDelete scans the user's non-expired session rows, verifying the
// presented plaintext against each salted hash, and deletes the matched row
// by primary key. Because the hash is salted there is no lookup key; the
// scan is the only way to find the row. A zero row count on delete means a
// concurrent rotation won the race, which counts as no match.
func matchAndDelete(ctx context.Context, tx store.Tx, userID idx.ID, presented string, now time.Time) error {
	sessions, err := tx.RefreshSessions().ListActiveRefreshSessions(ctx, userID, now)
	if err != nil {
		return err
	}

	for _, sess := range sessions {
		if err := cryptox.VerifySecret(presented, sess.TokenHash); err != nil {
			if errors.Is(err, cryptox.ErrMismatch) {
				continue
			}
			return err
		}

		n, err := tx.RefreshSessions().DeleteRefreshSession(ctx, sess.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInvalidRefresh
		}
		return nil
	}
	return ErrInvalidRefresh
}
