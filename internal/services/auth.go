package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/felixvaughn/themachine-backend/internal/logger"
	"github.com/felixvaughn/themachine-backend/internal/repos"
	"github.com/felixvaughn/themachine-backend/internal/requestdata"
	"github.com/felixvaughn/themachine-backend/internal/types"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) error
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.DisplayName = strings.TrimSpace(user.DisplayName)
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return fmt.Errorf("A valid email is required")
	}
	if len(user.Password) < 8 {
		return fmt.Errorf("Password must be at least 8 characters")
	}
	if user.DisplayName == "" {
		user.DisplayName = strings.SplitN(user.Email, "@", 2)[0]
	}

	exists, exErr := as.userRepo.EmailExists(ctx, nil, user.Email)
	if exErr != nil {
		as.log.Warn("Failed to check email uniqueness", "error", exErr)
		return fmt.Errorf("Failed to check email uniqueness: %w", exErr)
	}
	if exists {
		return fmt.Errorf("Email already registered")
	}

	hashed, hErr := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if hErr != nil {
		as.log.Warn("Failed to hash password", "error", hErr)
		return fmt.Errorf("Failed to hash password: %w", hErr)
	}
	user.Password = string(hashed)

	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.ID = uuid.New()
		if _, ucErr := as.userRepo.Create(ctx, tx, []*types.User{user}); ucErr != nil {
			as.log.Warn("Failed to create user", "error", ucErr)
			return fmt.Errorf("Failed to create user: %w", ucErr)
		}
		return nil
	})
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	users, usErr := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if usErr != nil {
		as.log.Warn("Error retrieving user by email", "error", usErr)
		return "", "", fmt.Errorf("Error retrieving user by email: %w", usErr)
	}
	if len(users) == 0 {
		return "", "", fmt.Errorf("Invalid email or password")
	}
	user := users[0]
	if hErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); hErr != nil {
		return "", "", fmt.Errorf("Invalid email or password")
	}

	var accessToken string
	var refreshToken string
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
		if ftErr != nil {
			return fmt.Errorf("Failed to check user tokens: %w", ftErr)
		}
		if len(foundTokens) > 0 {
			// Stale sessions are replaced, not rejected.
			if dtErr := as.userTokenRepo.DeleteByUserIDs(ctx, tx, []uuid.UUID{user.ID}); dtErr != nil {
				return fmt.Errorf("Failed to delete previous user tokens: %w", dtErr)
			}
		}
		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return fmt.Errorf("Generate access token error: %w", genErr)
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		userToken := types.UserToken{
			ID:           uuid.New(),
			UserID:       user.ID,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, ctErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&userToken}); ctErr != nil {
			as.log.Warn("Create user token error", "error", ctErr)
			return fmt.Errorf("Create user token error: %w", ctErr)
		}
		return nil
	}); err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		as.log.Warn("No request data found in context")
		return "", "", fmt.Errorf("No request data found in context")
	}
	if rd.RefreshToken == "" {
		as.log.Warn("Refresh token not found in request data")
		return "", "", fmt.Errorf("Refresh token not found in request data")
	}

	var accessToken string
	var newRefreshTokenStr string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.userTokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
		if ftErr != nil {
			as.log.Warn("Error fetching refresh token", "error", ftErr)
			return fmt.Errorf("Error fetching refresh token: %w", ftErr)
		}
		if len(foundTokens) == 0 {
			return fmt.Errorf("Unknown refresh token")
		}
		existingToken := foundTokens[0]
		if existingToken.ExpiresAt.Before(time.Now()) {
			if dtErr := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{existingToken.ID}); dtErr != nil {
				as.log.Warn("Refresh token expired, error deleting", "error", dtErr)
				return fmt.Errorf("Refresh token expired, error deleting: %w", dtErr)
			}
			return fmt.Errorf("Refresh token expired")
		}
		users, uErr := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existingToken.UserID})
		if uErr != nil {
			as.log.Warn("Failed to load user for refresh", "error", uErr)
			return fmt.Errorf("Failed to load user for refresh: %w", uErr)
		}
		if len(users) == 0 {
			return fmt.Errorf("No user found for the given refresh token")
		}
		user := users[0]
		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			as.log.Warn("Failed to generate new access token", "error", genErr)
			return fmt.Errorf("Failed to generate new access token: %w", genErr)
		}
		accessToken = tok
		newRefreshTokenStr = uuid.New().String()
		newUserToken := types.UserToken{
			ID:           uuid.New(),
			UserID:       user.ID,
			AccessToken:  tok,
			RefreshToken: newRefreshTokenStr,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, cErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&newUserToken}); cErr != nil {
			as.log.Warn("Failed to create new user token", "error", cErr)
			return fmt.Errorf("Failed to create new user token: %w", cErr)
		}
		if dErr := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{existingToken.ID}); dErr != nil {
			as.log.Warn("Failed to remove old refresh token", "error", dErr)
			return fmt.Errorf("Failed to remove old refresh token: %w", dErr)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, newRefreshTokenStr, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		as.log.Warn("No request data found in context")
		return fmt.Errorf("No request data found in context")
	}
	if rd.TokenString == "" {
		as.log.Warn("Token string in request data empty")
		return fmt.Errorf("Token string in request data empty")
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		foundTokens, ftErr := as.userTokenRepo.GetByAccessTokens(ctx, tx, []string{rd.TokenString})
		if ftErr != nil {
			as.log.Warn("Error finding user token from token string", "error", ftErr)
			return fmt.Errorf("Error finding user token from token string: %w", ftErr)
		}
		if len(foundTokens) == 0 {
			return nil
		}
		if tdErr := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{foundTokens[0].ID}); tdErr != nil {
			as.log.Warn("Error deleting user token", "error", tdErr)
			return fmt.Errorf("Error deleting user token: %w", tdErr)
		}
		return nil
	})
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("Failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("Invalid or expired JWT token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("Invalid user id in token: %w", err)
	}
	var refreshTokenStr string
	foundTokens, ftErr := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
	if ftErr != nil {
		as.log.Warn("Error fetching user token by access token", "error", ftErr)
		return ctx, fmt.Errorf("Failed to fetch user token by access token: %w", ftErr)
	}
	if len(foundTokens) > 0 {
		refreshTokenStr = foundTokens[0].RefreshToken
	}
	rd := &requestdata.RequestData{
		TokenString:  tokenString,
		RefreshToken: refreshTokenStr,
		UserID:       userID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
