package services

import (
	"context"
	"strings"

	"philosofium/backend/models"
	"philosofium/backend/utils"
)

// Principal is a resolved credential.
type Principal struct {
	LearnerID models.LearnerID
	Role      string
}

// IsLearner reports whether the principal accrues engagement and gamification state.
func (p Principal) IsLearner() bool {
	return p.LearnerID.Valid() && (p.Role == "" || strings.EqualFold(p.Role, models.RoleStudent))
}

// RequireLearner returns ErrNotLearner for admins and anonymous principals.
func (p Principal) RequireLearner() error {
	if !p.IsLearner() {
		return ErrNotLearner
	}
	return nil
}

// Identity resolves a bearer credential.
type Identity interface {
	Resolve(ctx context.Context, credential string) (Principal, error)
}

// JWTIdentity verifies HS256 tokens issued by utils.GenerateJWTToken.
type JWTIdentity struct {
	Secret string
}

func NewJWTIdentity(secret string) *JWTIdentity {
	return &JWTIdentity{Secret: secret}
}

func (j *JWTIdentity) Resolve(_ context.Context, credential string) (Principal, error) {
	claims, err := utils.ParseJWTToken(credential, j.Secret)
	if err != nil {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{LearnerID: models.LearnerID(claims.UserID), Role: claims.Role}, nil
}
