// Command medqueuectl is the operator tool: schema migration, staff and
// doctor accounts, and calling patients from a terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"medqueue/internal/config"
	"medqueue/internal/handlers"
	"medqueue/internal/models"
	"medqueue/internal/queue"
	"medqueue/internal/storage"
	"medqueue/internal/ws"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:           "medqueuectl",
		Short:         "medqueue operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(migrateCmd(), createUserCmd(), callNextCmd(), doctorsCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("medqueuectl")
	}
}

// env bundles what every command needs.
type env struct {
	cfg *config.Config
	db  *gorm.DB
	rdb *redis.Client
}

func open(ctx context.Context, withRedis bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	db, err := storage.ConnectDatabase(cfg.Database, false)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, db: db}
	if withRedis {
		if e.rdb, err = storage.InitRedis(ctx, cfg.Redis); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *env) close() {
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()
			if err := storage.AutoMigrate(e.db); err != nil {
				return err
			}
			log.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account with any role (self registration only creates patients)",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			surname, _ := cmd.Flags().GetString("surname")
			email, _ := cmd.Flags().GetString("email")
			phone, _ := cmd.Flags().GetString("phone")
			password, _ := cmd.Flags().GetString("password")
			roleFlag, _ := cmd.Flags().GetString("role")

			role := models.Role(strings.ToUpper(roleFlag))
			if !role.Valid() {
				return fmt.Errorf("unknown role %q", roleFlag)
			}
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}

			ctx := cmd.Context()
			e, err := open(ctx, role == models.RoleDoctor)
			if err != nil {
				return err
			}
			defer e.close()

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user := &models.User{
				Name:         name,
				Surname:      surname,
				Email:        email,
				Phone:        phone,
				PasswordHash: string(hash),
				Role:         role,
			}
			users := storage.NewUserStore(e.db)
			if err := users.CreateUser(ctx, user); err != nil {
				if errors.Is(err, storage.ErrAlreadyExists) {
					return fmt.Errorf("email %s is already taken", user.Email)
				}
				return err
			}
			if e.rdb != nil {
				// running servers serve the doctor list from cache
				if err := handlers.NewDoctorHandler(users, e.rdb).Invalidate(ctx); err != nil {
					log.Warn().Err(err).Msg("doctor cache invalidate")
				}
			}
			log.Info().Uint("user_id", user.ID).Str("role", string(role)).Msg("user created")
			return printJSON(map[string]any{"id": user.ID, "email": user.Email, "role": role})
		},
	}
	cmd.Flags().String("name", "", "First name")
	cmd.Flags().String("surname", "", "Last name")
	cmd.Flags().String("email", "", "Login email")
	cmd.Flags().String("phone", "", "Phone number")
	cmd.Flags().String("password", "", "Password (at least 6 characters)")
	cmd.Flags().String("role", string(models.RoleStaff), "ADMIN, DOCTOR, STAFF or PATIENT")
	for _, f := range []string{"name", "surname", "email", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func callNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call-next",
		Short: "Call the next waiting patient of a doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetUint("doctor")
			ctx := cmd.Context()
			e, err := open(ctx, true)
			if err != nil {
				return err
			}
			defer e.close()

			engine := queue.NewEngine(storage.NewQueueStore(e.db), storage.NewUserStore(e.db), queue.Config{
				MinutesPerPatient: e.cfg.Queue.MinutesPerPatient,
				Location:          e.cfg.Queue.Location,
			}, log.Logger)
			var relay *ws.RedisRelay
			if e.rdb != nil {
				relay = ws.NewRedisRelay(e.rdb, ws.NewHub(log.Logger), log.Logger)
				engine.SetNotifier(relay)
			}

			entry, err := engine.CallNextPatient(ctx, doctorID)
			if err != nil {
				return fmt.Errorf("%s: %w", queue.Kind(err), err)
			}
			if relay != nil {
				if err := relay.Flush(ctx); err != nil {
					log.Warn().Err(err).Msg("watchers were not notified")
				}
			} else {
				log.Warn().Msg("REDIS_ADDR not set, connected clients see the change on the next resync")
			}
			if entry == nil {
				log.Info().Uint("doctor_id", doctorID).Msg("nobody is waiting")
				return nil
			}
			return printJSON(entry)
		},
	}
	cmd.Flags().Uint("doctor", 0, "Doctor user ID")
	_ = cmd.MarkFlagRequired("doctor")
	return cmd
}

func doctorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctors",
		Short: "List doctor accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.close()
			doctors, err := storage.NewUserStore(e.db).ListDoctors(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]handlers.Doctor, 0, len(doctors))
			for _, d := range doctors {
				out = append(out, handlers.Doctor{ID: d.ID, Name: d.Name, Surname: d.Surname})
			}
			return printJSON(out)
		},
	}
}
