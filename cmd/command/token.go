package command

import (
	"context"
	"fmt"
	"time"

	"clinic-queue/config"
	"clinic-queue/internal/delivery/http/middleware"
	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/infrastructure/cache"
	"clinic-queue/pkg/jwt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Token issues an access token for operators and kiosks that are not provisioned by the identity service.
type Token struct {
	Logger *logrus.Logger
}

func (cmd Token) Command(cfg *config.Config) *cobra.Command {
	var (
		userID string
		email  string
		role   string
		ttl    time.Duration
	)

	c := &cobra.Command{
		Use:   "token",
		Short: "issue an access token signed with JWT_SECRET",
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.run(c, cfg, userID, email, role, ttl)
		},
	}
	c.Flags().StringVar(&userID, "user-id", "", "user ID to embed, a random one when empty")
	c.Flags().StringVar(&email, "email", "", "email to embed")
	c.Flags().StringVar(&role, "role", entity.RoleReception, "role: admin, doctor, reception or patient")
	c.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return c
}

func (cmd Token) run(c *cobra.Command, cfg *config.Config, rawUserID, email, role string, ttl time.Duration) error {
	if cfg.JWT.Secret == "" {
		return errors.New("token: JWT_SECRET is not set")
	}
	switch role {
	case entity.RoleAdmin, entity.RoleDoctor, entity.RoleReception, entity.RolePatient:
	default:
		return fmt.Errorf("token: unknown role %q", role)
	}

	userID := uuid.New()
	if rawUserID != "" {
		parsed, err := uuid.Parse(rawUserID)
		if err != nil {
			return errors.Wrap(err, "token: invalid user ID")
		}
		userID = parsed
	}

	token, tokenID, err := jwt.NewJWTService(cfg.JWT).GenerateAccessToken(userID, email, role, ttl)
	if err != nil {
		return errors.Wrap(err, "token: failed to sign")
	}

	// The auth middleware only accepts tokens registered in Redis
	if cfg.Redis.Host != "" {
		redisClient, err := cache.NewRedisClient(cfg.Redis, cmd.Logger)
		if err != nil {
			return errors.Wrap(err, "token: failed to connect to redis")
		}
		defer redisClient.Close()

		key := fmt.Sprintf("%s%s:%s", middleware.AccessTokenKeyPrefix, userID.String(), tokenID)
		if err := redisClient.Set(context.Background(), key, "1", ttl).Err(); err != nil {
			return errors.Wrap(err, "token: failed to register token")
		}
	}

	cmd.Logger.WithFields(logrus.Fields{"user_id": userID, "role": role, "expires_in": ttl.String()}).Info("Access token issued")
	fmt.Fprintln(c.OutOrStdout(), token)
	return nil
}
