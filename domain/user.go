package domain

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/semka95/natours/backend/query"
	"github.com/semka95/natours/backend/web/auth"
)

// DefaultPhoto is set for users without uploaded photo
const DefaultPhoto = "default.jpg"

// NormalizeEmail trims and lowercases email, it is applied wherever email
// is stored or looked up
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserQuerySchema describes queryable user fields
var UserQuerySchema = query.Schema{
	Fields: map[string]query.Kind{
		"_id":       query.ObjectID,
		"name":      query.String,
		"email":     query.String,
		"role":      query.String,
		"createdAt": query.Date,
	},
	Hidden: []string{"password", "passwordChangedAt", "passwordResetToken", "passwordResetExpires", "active"},
}

// User represents the User model
type User struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id"`
	Name                 string             `json:"name" bson:"name"`
	Email                string             `json:"email" bson:"email"`
	Photo                string             `json:"photo" bson:"photo"`
	Role                 string             `json:"role" bson:"role"`
	Password             string             `json:"-" bson:"password,omitempty"`
	PasswordChangedAt    *time.Time         `json:"-" bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   string             `json:"-" bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time         `json:"-" bson:"passwordResetExpires,omitempty"`
	Active               bool               `json:"-" bson:"active"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	Version              int                `json:"-" bson:"__v"`
}

// ChangedPasswordAfter reports whether password was changed after the token was issued
func (u *User) ChangedPasswordAfter(issued time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Truncate(time.Second).After(issued)
}

// SignupUser represents data to register new User
type SignupUser struct {
	Name            string `json:"name" form:"name" validate:"required,max=50"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm" validate:"required,eqfield=Password"`
}

// LoginUser represents login credentials
type LoginUser struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ForgotPassword represents password reset request
type ForgotPassword struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPassword represents new password set with reset token
type ResetPassword struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// UpdatePassword represents password change of logged in user
type UpdatePassword struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// UpdateMe represents self-service profile update, password fields are
// only decoded to be rejected
type UpdateMe struct {
	Name            *string `json:"name" form:"name" validate:"omitempty,max=50"`
	Email           *string `json:"email" form:"email" validate:"omitempty,email"`
	Photo           *string `json:"-" form:"-"`
	Password        *string `json:"password" form:"password"`
	PasswordConfirm *string `json:"passwordConfirm" form:"passwordConfirm"`
}

// UpdateUser represents admin update of User, password can't be changed here
type UpdateUser struct {
	Name  *string `json:"name" validate:"omitempty,max=50"`
	Email *string `json:"email" validate:"omitempty,email"`
	Photo *string `json:"photo" validate:"omitempty,max=100"`
	Role  *string `json:"role" validate:"omitempty,oneof=user guide lead-guide admin"`
}

// UserUsecase represents the User's usecases
type UserUsecase interface {
	Fetch(ctx context.Context, q *query.Request) ([]*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, id string, user UpdateUser) (*User, error)
	Delete(ctx context.Context, id string) error

	Signup(ctx context.Context, user SignupUser, welcomeURL string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	CurrentUser(ctx context.Context, claims auth.Claims) (*User, error)
	ForgotPassword(ctx context.Context, email, resetURL string) error
	ResetPassword(ctx context.Context, token string, r ResetPassword) (*User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, r UpdatePassword) (*User, error)
	UpdateMe(ctx context.Context, id primitive.ObjectID, r UpdateMe) (*User, error)
	DeleteMe(ctx context.Context, id primitive.ObjectID) error
}

// UserRepository represents the User's repository contract. Only WithPassword
// methods read the password hash.
type UserRepository interface {
	Fetch(ctx context.Context, q *query.Request) ([]*User, error)
	FetchByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByIDWithPassword(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*User, error)
	GetByResetToken(ctx context.Context, hashedToken string, now time.Time) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Mailer sends transactional emails to users
type Mailer interface {
	SendWelcome(ctx context.Context, user *User, url string) error
	SendPasswordReset(ctx context.Context, user *User, url string) error
}
