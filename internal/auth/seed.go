package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/store"
	"gopkg.in/yaml.v3"
)

type usersFile struct {
	Users []struct {
		Email    string      `yaml:"email"`
		Name     string      `yaml:"name"`
		Password string      `yaml:"password"`
		Role     models.Role `yaml:"role"`
	} `yaml:"users"`
}

// SeedFromFile creates the accounts listed in a YAML file. Entries without an
// email or password and emails that already exist are skipped. A missing role
// defaults to participant. It returns how many accounts were created.
func SeedFromFile(ctx context.Context, users store.UserStore, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	created := 0
	for _, u := range uf.Users {
		if u.Email == "" || u.Password == "" {
			continue
		}
		role := u.Role
		if role == "" {
			role = models.RoleParticipant
		}
		if _, err := CreateUser(ctx, users, u.Email, u.Name, u.Password, role); err != nil {
			if errors.Is(err, ErrUserExists) {
				continue
			}
			return created, fmt.Errorf("seed %s: %w", u.Email, err)
		}
		created++
	}
	return created, nil
}
