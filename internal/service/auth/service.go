package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
	"github.com/jwalitptl/hospital-api/pkg/security"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Config struct {
	AllowAdminSignup bool
}

type Service struct {
	store     repository.Store
	hasher    security.PasswordHasher
	jwtSvc    auth.JWTService
	revoked   auth.RevocationList
	cfg       Config
	dummyHash string
}

func NewService(store repository.Store, hasher security.PasswordHasher, jwtSvc auth.JWTService,
	revoked auth.RevocationList, cfg Config) *Service {
	// Compared against when the email is unknown so both paths cost one bcrypt round.
	dummyHash, _ := hasher.Hash("not-a-real-password")
	return &Service{
		store:     store,
		hasher:    hasher,
		jwtSvc:    jwtSvc,
		revoked:   revoked,
		cfg:       cfg,
		dummyHash: dummyHash,
	}
}

// ValidateCredentials returns the matching user without its password hash,
// or nil when the email is unknown or the password is wrong.
func (s *Service) ValidateCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		_ = s.hasher.Compare(s.dummyHash, password)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, nil
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *Service) IssueSession(user *model.User) (*model.Session, error) {
	token, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.Session{
		AccessToken: token,
		User:        user.Public(),
	}, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.Session, error) {
	user, err := s.ValidateCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &apperrors.AppError{
			Code:    apperrors.ErrUnauthorized,
			Message: ErrInvalidCredentials.Error(),
			Err:     ErrInvalidCredentials,
		}
	}

	zerolog.Ctx(ctx).Info().Int64("user_id", user.ID).Msg("user logged in")
	return s.IssueSession(user)
}

// Register creates the account and its role profile in one transaction and logs the user in.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.Session, error) {
	role := req.Role
	if role == "" {
		role = model.RolePatient
	}
	if role == model.RoleAdmin && !s.cfg.AllowAdminSignup {
		return nil, apperrors.Forbidden("admin self-registration is disabled")
	}

	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, role)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Int64("user_id", user.ID).Str("role", string(role)).Msg("user registered")
	return s.IssueSession(user)
}

// CreateAdmin bootstraps an administrator account.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	return s.createUser(ctx, name, email, password, model.RoleAdmin)
}

func (s *Service) createUser(ctx context.Context, name, email, password string, role model.Role) (*model.User, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, security.ErrPasswordTooShort) {
		return nil, apperrors.Validation("validation failed", apperrors.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", security.MinPasswordLen),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().GetByEmail(ctx, user.Email); err == nil {
			return apperrors.Conflict("email already registered", nil)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check email: %w", err)
		}

		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.Conflict("email already registered", err)
			}
			return err
		}

		switch role {
		case model.RoleDoctor:
			profile := &model.DoctorProfile{
				UserID:          user.ID,
				Specialization:  model.DefaultSpecialization,
				Experience:      model.DefaultExperience,
				ConsultationFee: model.DefaultConsultationFee,
			}
			if err := tx.Profiles().CreateDoctor(ctx, profile); err != nil {
				return err
			}
			user.DoctorProfile = profile
		case model.RolePatient:
			profile := &model.PatientProfile{
				UserID:  user.ID,
				Gender:  model.DefaultGender,
				Address: model.DefaultAddress,
				DOB:     time.Now().UTC(),
			}
			if err := tx.Profiles().CreatePatient(ctx, profile); err != nil {
				return err
			}
			user.PatientProfile = profile
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// Authenticate resolves a bearer token to its caller.
func (s *Service) Authenticate(_ context.Context, token string) (*model.Actor, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, &apperrors.AppError{Code: apperrors.ErrUnauthorized, Message: "invalid or expired token", Err: err}
	}
	if s.revoked.IsRevoked(claims.ID) {
		return nil, &apperrors.AppError{Code: apperrors.ErrUnauthorized, Message: "token has been revoked", Err: auth.ErrTokenRevoked}
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, &apperrors.AppError{Code: apperrors.ErrUnauthorized, Message: "invalid or expired token", Err: err}
	}

	actor := &model.Actor{
		UserID:  userID,
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		actor.ExpiresAt = claims.ExpiresAt.Time
	}
	return actor, nil
}

// Logout revokes the caller's token until it would have expired.
func (s *Service) Logout(ctx context.Context, actor model.Actor) error {
	if actor.TokenID == "" {
		return apperrors.Unauthorized("token has no id")
	}
	s.revoked.Revoke(actor.TokenID, actor.ExpiresAt)
	zerolog.Ctx(ctx).Info().Int64("user_id", actor.UserID).Msg("user logged out")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
