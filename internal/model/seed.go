package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"yamdb/internal/auth"
	"yamdb/internal/config"
	"yamdb/internal/entity"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SeedSuperuser ensures the configured superuser exists, is active and has
// the configured email and password. Nothing happens when no username is set.
func SeedSuperuser(ctx context.Context, repo Repository, cfg config.Config) error {
	if repo == nil {
		return nil
	}
	username := strings.TrimSpace(cfg.SuperuserUsername)
	if username == "" {
		return nil
	}
	email := strings.TrimSpace(cfg.SuperuserEmail)
	if email == "" {
		return fmt.Errorf("SUPERUSER_EMAIL is required when SUPERUSER_USERNAME is set")
	}

	existing, err := repo.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return syncSuperuser(ctx, repo, existing, email, cfg.SuperuserPassword)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return createSuperuser(ctx, repo, username, email, cfg.SuperuserPassword)
	default:
		return err
	}
}

func createSuperuser(ctx context.Context, repo Repository, username, email, password string) error {
	user := &entity.DbUser{
		Username:    username,
		Email:       email,
		Role:        entity.UserRoleAdmin,
		IsSuperuser: true,
		IsActive:    true,
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create superuser: %w", err)
	}
	logrus.WithField("username", username).Info("superuser created")
	return nil
}

func syncSuperuser(ctx context.Context, repo Repository, existing *entity.DbUser, email, password string) error {
	var updates entity.UserUpdates
	if existing.Email != email {
		updates.Email = &email
	}
	if existing.Role != entity.UserRoleAdmin {
		role := entity.UserRoleAdmin
		updates.Role = &role
	}
	if !existing.IsActive {
		active := true
		updates.IsActive = &active
	}
	if password != "" && auth.VerifyPassword(existing.PasswordHash, password) != nil {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		updates.PasswordHash = &hash
	}

	if !existing.IsSuperuser {
		superuser := true
		updates.IsSuperuser = &superuser
	}
	if updates.IsEmpty() {
		return nil
	}

	if err := repo.UpdateUser(ctx, existing.ID, updates); err != nil {
		return fmt.Errorf("update superuser: %w", err)
	}
	logrus.WithField("username", existing.Username).Info("superuser synchronised")
	return nil
}
