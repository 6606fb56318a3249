package domain

import (
	"errors"
	"testing"
)

func TestUser_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		user    *User
		wantErr bool
	}{
		{name: "nil user", user: nil, wantErr: true},
		{name: "empty email", user: &User{Name: "Ned"}, wantErr: true},
		{name: "email only", user: &User{Email: "ned@example.com"}, wantErr: false},
		{
			name: "full",
			user: &User{
				Name:           "Ned Stark",
				Email:          "ned@example.com",
				HashedPassword: "$2a$10$abc",
				Preferences:    Preferences{"favorite_cast": "Sean Bean"},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.user.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
