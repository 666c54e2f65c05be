package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email is already registered")
)

type Repo struct {
	db *gorm.DB
}

func OpenPostgres(user, password, dbName, host, port, sslMode string) (*gorm.DB, error) {
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC", host, user, password, dbName, port, sslMode)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func New(db *gorm.DB) (*Repo, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, err
	}
	return &Repo{db: db}, nil
}

// Create inserts a new account. Emails are stored lowercased so lookups
// are case-insensitive.
func (r *Repo) Create(ctx context.Context, email, passwordHash, displayName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
	}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) MarkVerified(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("display_name", displayName)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs Preferences) error {
	buf, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("preferences", datatypes.JSON(buf))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPreferences decodes the settings blob; a user without stored
// preferences yields the zero value.
func (r *Repo) GetPreferences(ctx context.Context, id uuid.UUID) (Preferences, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return Preferences{}, err
	}
	var prefs Preferences
	if len(u.Preferences) == 0 {
		return prefs, nil
	}
	if err := json.Unmarshal(u.Preferences, &prefs); err != nil {
		return Preferences{}, err
	}
	return prefs, nil
}
