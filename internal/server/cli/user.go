package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/yardsync/internal/models"
	"github.com/iudanet/yardsync/internal/server/storage"
	"github.com/iudanet/yardsync/internal/validation"
)

var roles = []models.Role{
	models.RoleYardOperator,
	models.RoleDriver,
	models.RoleMachineOperator,
	models.RoleAdmin,
}

func roleNames() string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func parseRole(s string) (models.Role, error) {
	role := models.Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q (expected one of: %s)", s, roleNames())
	}
	return role, nil
}

func (c *Cli) userCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operators",
	}
	cmd.AddCommand(
		c.userAddCommand(flags),
		c.userPasswdCommand(flags),
		c.userRoleCommand(flags),
		c.userListCommand(flags),
	)
	return cmd
}

func (c *Cli) userAddCommand(flags *globalFlags) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if err := validation.ValidateUsername(username); err != nil {
				return err
			}
			r, err := parseRole(role)
			if err != nil {
				return err
			}
			hash, err := c.askPassword()
			if err != nil {
				return err
			}

			return c.withStore(cmd.Context(), flags, func(store Store) error {
				now := c.clock.Now().UTC()
				err := store.CreateUser(cmd.Context(), &models.User{
					ID:           uuid.NewString(),
					Username:     username,
					PasswordHash: hash,
					Role:         r,
					CreatedAt:    now,
					UpdatedAt:    now,
				})
				if errors.Is(err, storage.ErrUserAlreadyExists) {
					return fmt.Errorf("operator %q already exists", username)
				}
				if err != nil {
					return err
				}
				c.io.Printf("✓ Operator %s created (%s)\n", username, r)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", string(models.RoleYardOperator), "role: "+roleNames())
	return cmd
}

func (c *Cli) userPasswdCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a new password for an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := c.askPassword()
			if err != nil {
				return err
			}
			return c.updateUser(cmd.Context(), flags, args[0], func(u *models.User) {
				u.PasswordHash = hash
			})
		},
	}
}

func (c *Cli) userRoleCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "role <username> <role>",
		Short: "Change the role of an operator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRole(args[1])
			if err != nil {
				return err
			}
			return c.updateUser(cmd.Context(), flags, args[0], func(u *models.User) {
				u.Role = r
			})
		},
	}
}

func (c *Cli) updateUser(ctx context.Context, flags *globalFlags, username string, change func(*models.User)) error {
	return c.withStore(ctx, flags, func(store Store) error {
		user, err := store.GetUserByUsername(ctx, username)
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("operator %q not found", username)
		}
		if err != nil {
			return err
		}

		change(user)
		user.UpdatedAt = c.clock.Now().UTC()
		if err := store.UpdateUser(ctx, user); err != nil {
			return err
		}
		c.io.Printf("✓ Operator %s updated\n", username)
		return nil
	})
}

func (c *Cli) userListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd.Context(), flags, func(store Store) error {
				users, err := store.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if len(users) == 0 {
					c.io.Println("No operators. Add one with 'yardsync-collector user add'.")
					return nil
				}

				w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "USERNAME\tROLE\tFORMS\tCREATED")
				for _, u := range users {
					kinds := make([]string, 0, len(u.Role.Kinds()))
					for _, k := range u.Role.Kinds() {
						kinds = append(kinds, string(k))
					}
					sort.Strings(kinds)
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Username, u.Role,
						strings.Join(kinds, ","), u.CreatedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}
}

// askPassword запрашивает пароль дважды и возвращает bcrypt хеш
func (c *Cli) askPassword() (string, error) {
	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return "", err
	}
	confirm, err := c.io.ReadPassword("Repeat password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if confirm != password {
		return "", errors.New("passwords do not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
