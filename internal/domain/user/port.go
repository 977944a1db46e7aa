package user

import "context"

// Repo is the credential store. Emails are expected already normalized;
// Create reports ErrEmailTaken when the unique email index rejects the write.
type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
