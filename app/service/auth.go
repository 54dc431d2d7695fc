package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chronosync/chronosync-api/app/entity"
	"github.com/chronosync/chronosync-api/app/oauth"
	"github.com/chronosync/chronosync-api/app/repository"
	"github.com/chronosync/chronosync-api/config"
)

var (
	ErrEmailTaken               = errors.New("email already registered")
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrPasswordLoginUnavailable = errors.New("password login unavailable for this account")
	ErrUserNotFound             = errors.New("user not found")
	ErrInvalidToken             = errors.New("invalid token")
	ErrTokenExpired             = errors.New("token expired")
	ErrProviderEmailMissing     = errors.New("provider returned no email")
	ErrWeakPassword             = errors.New("password does not meet policy")
)

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
}

type oauthAccountRepository interface {
	Create(ctx context.Context, account *entity.OAuthAccount) error
	FindByProviderIdentity(ctx context.Context, provider, providerAccountID string) (*entity.OAuthAccount, error)
	ListByUserID(ctx context.Context, userID uint64) ([]entity.OAuthAccount, error)
}

// AuthResult pairs the authenticated user with a freshly issued access
// token.
type AuthResult struct {
	User  *entity.User
	Token string
}

type AuthService struct {
	db            *sql.DB
	users         userRepository
	oauthAccounts oauthAccountRepository
	tokens        *TokenService
	passwords     *PasswordHasher
	cfg           *config.Config
}

func NewAuthService(db *sql.DB, tokens *TokenService, passwords *PasswordHasher, cfg *config.Config) *AuthService {
	return &AuthService{
		db:            db,
		users:         repository.NewUserRepository(db),
		oauthAccounts: repository.NewOAuthAccountRepository(db),
		tokens:        tokens,
		passwords:     passwords,
		cfg:           cfg,
	}
}

// Register creates a credentials-based account. The email is the unique
// key; a duplicate insert races through to the unique index and comes
// back as ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	if err := s.cfg.Password.Policy.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	verificationToken, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Name:                       sql.NullString{String: name, Valid: true},
		Email:                      email,
		PasswordHash:               sql.NullString{String: hash, Valid: true},
		VerificationToken:          sql.NullString{String: verificationToken, Valid: true},
		VerificationTokenExpiresAt: sql.NullTime{Time: time.Now().Add(s.cfg.Tokens.VerificationTTL), Valid: true},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies email/password credentials. Unknown email and wrong
// password both return ErrInvalidCredentials; an existing account that
// only ever signed in through a provider has no hash and gets
// ErrPasswordLoginUnavailable instead.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.PasswordHash.Valid {
		return nil, ErrPasswordLoginUnavailable
	}
	if !s.passwords.Verify(user.PasswordHash.String, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// OAuthLogin reconciles a provider identity against the user store and
// issues an access token. Resolution order: an existing link wins, then
// an exact email match gets a new link, then a new user is created.
func (s *AuthService) OAuthLogin(ctx context.Context, identity *oauth.Identity) (*AuthResult, error) {
	if identity.Email == "" {
		return nil, ErrProviderEmailMissing
	}

	userID, err := s.resolveIdentity(ctx, identity)
	if err != nil && errors.Is(err, repository.ErrDuplicateEntry) {
		// A concurrent login for the same identity or email won the
		// insert. Its row is now visible, so one retry resolves.
		log.WithFields(log.Fields{
			"provider": identity.Provider,
		}).Info("oauth identity insert raced, retrying lookup")
		userID, err = s.resolveIdentity(ctx, identity)
	}
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) resolveIdentity(ctx context.Context, identity *oauth.Identity) (uint64, error) {
	account, err := s.oauthAccounts.FindByProviderIdentity(ctx, identity.Provider, identity.ProviderAccountID)
	if err != nil {
		return 0, fmt.Errorf("find oauth account: %w", err)
	}
	if account != nil {
		return account.UserID, nil
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		return 0, fmt.Errorf("find user by email: %w", err)
	}
	if user != nil {
		if err := s.oauthAccounts.Create(ctx, newLink(user.ID, identity)); err != nil {
			return 0, err
		}
		return user.ID, nil
	}

	return s.createOAuthUser(ctx, identity)
}

// createOAuthUser inserts the user row and its provider link in one
// transaction so a crash between the two cannot strand a linkless user.
func (s *AuthService) createOAuthUser(ctx context.Context, identity *oauth.Identity) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	user := &entity.User{
		Name:          sql.NullString{String: identity.Name, Valid: identity.Name != ""},
		Email:         identity.Email,
		Image:         sql.NullString{String: identity.Image, Valid: identity.Image != ""},
		EmailVerified: sql.NullTime{Time: time.Now(), Valid: true},
	}
	if err := repository.NewUserRepository(tx).Create(ctx, user); err != nil {
		return 0, err
	}
	if err := repository.NewOAuthAccountRepository(tx).Create(ctx, newLink(user.ID, identity)); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return user.ID, nil
}

func newLink(userID uint64, identity *oauth.Identity) *entity.OAuthAccount {
	return &entity.OAuthAccount{
		UserID:            userID,
		Provider:          identity.Provider,
		ProviderAccountID: identity.ProviderAccountID,
		AccessToken:       identity.AccessToken,
		RefreshToken:      sql.NullString{String: identity.RefreshToken, Valid: identity.RefreshToken != ""},
	}
}

// RequestPasswordReset stores a fresh reset token for the account. The
// returned token goes to the mail sender only; callers facing clients
// must answer identically whether or not the email exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return "", nil
	}

	token, err := NewOpaqueToken()
	if err != nil {
		return "", err
	}

	user.VerificationToken = sql.NullString{String: token, Valid: true}
	user.VerificationTokenExpiresAt = sql.NullTime{Time: time.Now().Add(s.cfg.Tokens.ResetTTL), Valid: true}
	if err := s.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	// TODO: hand the token to the mail sender once the notification
	// service is wired up.
	log.WithField("user_id", user.ID).Info("password reset token issued")
	return token, nil
}

// ResetPassword consumes a reset token and installs the new password.
// The token is cleared in the same update that sets the hash, so a
// second confirm with the same token fails.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidToken
	}
	if err := s.cfg.Password.Policy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err)
	}

	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		return fmt.Errorf("find user by token: %w", err)
	}
	if user == nil {
		return ErrInvalidToken
	}
	if !user.VerificationTokenExpiresAt.Valid || time.Now().After(user.VerificationTokenExpiresAt.Time) {
		return ErrTokenExpired
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = sql.NullString{String: hash, Valid: true}
	user.VerificationToken = sql.NullString{}
	user.VerificationTokenExpiresAt = sql.NullTime{}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID uint64) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokens.Verify(tokenString)
}

// LinkedProviders lists the provider names attached to the account.
func (s *AuthService) LinkedProviders(ctx context.Context, userID uint64) ([]string, error) {
	accounts, err := s.oauthAccounts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list oauth accounts: %w", err)
	}
	providers := make([]string, 0, len(accounts))
	for _, account := range accounts {
		providers = append(providers, account.Provider)
	}
	return providers, nil
}
