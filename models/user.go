package models

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/utils"
)

type User struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Email       string    `gorm:"size:100;not null;unique" json:"email" binding:"required"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Password    string    `gorm:"size:255;not null" json:"password"`
	IsActive    *bool     `gorm:"not null" json:"is_active"`
	Role        UserRole  `gorm:"type:enum('A', 'U');default:U" json:"role"`
	Plan        string    `gorm:"size:32;not null;default:'free'" json:"plan"`
	PagesUsed   int       `gorm:"not null;default:0" json:"pages_used"`
	PagesLimit  int       `gorm:"not null;default:300" json:"pages_limit"`
	InviteCode  string    `gorm:"size:6;not null;unique" json:"invite_code"`
	InviteCount int       `gorm:"not null;default:0" json:"invite_count"`
	InvitePages int       `gorm:"not null;default:0" json:"invite_pages"`
	InvitedBy   *int      `gorm:"index" json:"invited_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Phone      string `json:"phone"`
	InviteCode string `json:"invite_code"`
}

type LoginInfo struct {
	Token      string   `json:"token"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role"`
	Plan       string   `json:"plan"`
	PagesUsed  int      `json:"pages_used"`
	PagesLimit int      `json:"pages_limit"`
	InviteCode string   `json:"invite_code"`
}

var (
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrQuotaExceeded     = errors.New("page quota exceeded, please upgrade your plan")
)

func (result *User) PrepareGive() {
	result.Password = ""
}

// CheckQuota enforces pagesUsed + incoming <= pagesLimit.
func CheckQuota(pagesUsed, pagesLimit, incoming int) error {
	if incoming < 0 {
		return errors.New("invalid page count")
	}
	if pagesUsed+incoming > pagesLimit {
		return ErrQuotaExceeded
	}
	return nil
}

// Signup creates the account and, when an invite code is supplied, redeems
// it in the same transaction: the invitee starts with the boosted limit and
// the inviter earns bonus pages.
func Signup(ctx context.Context, input *NewUser) (*User, error) {

	db := config.GetDB()
	var count int64

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email address")
	}
	if len(input.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, errors.New("invalid phone number")
		}
	}

	err := db.WithContext(ctx).Model(&User{}).Where("email = ?", input.Email).Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("duplicate email")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Email:      html.EscapeString(input.Email),
		Phone:      input.Phone,
		Password:   string(hashedPassword),
		IsActive:   utils.NewTrue(),
		Role:       UserRoleMember,
		Plan:       FreePlanID,
		PagesLimit: DefaultPagesLimit,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inviter *User
		if input.InviteCode != "" {
			inviter = &User{}
			code := strings.ToUpper(strings.TrimSpace(input.InviteCode))
			if err := tx.Where("invite_code = ?", code).Take(inviter).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrInvalidInviteCode
				}
				return err
			}
			user.PagesLimit = InvitedPagesLimit
			user.InvitedBy = &inviter.ID
		}

		code, err := uniqueInviteCode(tx)
		if err != nil {
			return err
		}
		user.InviteCode = code

		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		if inviter != nil {
			if err := tx.Model(&User{}).Where("id = ?", inviter.ID).Updates(map[string]interface{}{
				"pages_limit":  gorm.Expr("pages_limit + ?", InviteRewardPages),
				"invite_pages": gorm.Expr("invite_pages + ?", InviteRewardPages),
				"invite_count": gorm.Expr("invite_count + 1"),
			}).Error; err != nil {
				return err
			}
		}

		return EnqueueEvent(ctx, tx, user.ID, fmt.Sprint(user.ID), EventReferenceUser, EventActionCreate, nil)
	})
	if err != nil {
		return nil, err
	}

	user.PrepareGive()
	return &user, nil
}

func uniqueInviteCode(tx *gorm.DB) (string, error) {
	for i := 0; i < 10; i++ {
		code := utils.GenerateInviteCode()
		var count int64
		if err := tx.Model(&User{}).Where("invite_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate invite code")
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	err := config.RemoveRedisKey("Token:" + fmt.Sprint(token))
	if err != nil {
		return false, nil
	}
	// remove current token from tokens list
	email, ok := utils.GetUserEmailFromContext(ctx)
	if !ok || email == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+email, token); err != nil {
		return false, err
	}
	return true, nil
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var result LoginInfo

	email = strings.ToLower(strings.TrimSpace(email))

	user := User{}
	err := db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Take(&user).Error
	if err != nil {
		return &result, errors.New("invalid email or password")
	}

	// check login credentials; any comparison failure rejects, including a
	// malformed stored hash
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return &result, errors.New("invalid email or password")
	}

	if user.IsActive != nil && !*user.IsActive {
		return &result, errors.New("user is disabled")
	}

	// generate token & response
	token := uuid.New()
	result.Token = token.String()
	result.Email = user.Email
	result.Role = user.Role
	result.Plan = user.Plan
	result.PagesUsed = user.PagesUsed
	result.PagesLimit = user.PagesLimit
	result.InviteCode = user.InviteCode

	// store token in redis
	token_lifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		return &result, err
	}

	// add new token to the user's tokens set
	if err := config.AddRedisSet("Tokens:"+user.Email, token.String()); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token.String(), user.Email, time.Duration(token_lifespan)*time.Hour); err != nil {
		return &result, err
	}

	return &result, nil
}

// GetCurrentUser resolves the session user from the request context.
func GetCurrentUser(ctx context.Context) (*User, error) {
	email, ok := utils.GetUserEmailFromContext(ctx)
	if !ok || email == "" {
		return nil, errors.New("unauthorized")
	}
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

func GetAllUsers(ctx context.Context) ([]*User, error) {

	db := config.GetDB()
	var results []*User

	if err := db.WithContext(ctx).Order("id").Find(&results).Error; err != nil {
		return results, errors.New("no user")
	}

	for i, u := range results {
		u.Password = ""
		results[i] = u
	}

	return results, nil
}

func GetUserByID(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	user.PrepareGive()
	return &user, nil
}

type AdminUserUpdate struct {
	Plan       *string   `json:"plan"`
	PagesLimit *int      `json:"pages_limit"`
	PagesUsed  *int      `json:"pages_used"`
	Role       *UserRole `json:"role"`
	IsActive   *bool     `json:"is_active"`
}

// AdminUpdateUser applies a partial update to any account. The request
// context must carry the admin flag set by the authorization middleware.
func AdminUpdateUser(ctx context.Context, id int, input *AdminUserUpdate) (*User, error) {
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); !isAdmin {
		return nil, errors.New("unauthorized")
	}

	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	updates := map[string]interface{}{}
	if input.Plan != nil {
		if _, err := GetPlan(*input.Plan); err != nil {
			return nil, err
		}
		updates["plan"] = *input.Plan
	}
	if input.PagesLimit != nil {
		if *input.PagesLimit < 0 {
			return nil, errors.New("pages_limit must not be negative")
		}
		updates["pages_limit"] = *input.PagesLimit
	}
	if input.PagesUsed != nil {
		if *input.PagesUsed < 0 {
			return nil, errors.New("pages_used must not be negative")
		}
		updates["pages_used"] = *input.PagesUsed
	}
	if input.Role != nil {
		if *input.Role != UserRoleAdmin && *input.Role != UserRoleMember {
			return nil, errors.New("invalid role")
		}
		updates["role"] = *input.Role
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		user.PrepareGive()
		return &user, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Take(&user).Error; err != nil {
			return err
		}
		return EnqueueEvent(ctx, tx, user.ID, fmt.Sprint(user.ID), EventReferenceUser, EventActionUpdate, nil)
	})
	if err != nil {
		return nil, err
	}

	// the cached identity is stale now; deactivation also kills open sessions
	if err := config.RemoveRedisKey("User:" + user.Email); err != nil {
		config.LogError(config.GetLogger(), "user.go", "AdminUpdateUser", "drop cached user", user.ID, err)
	}
	if input.IsActive != nil && !*input.IsActive {
		tokens, err := config.GetRedisSetMembers("Tokens:" + user.Email)
		if err != nil {
			config.LogError(config.GetLogger(), "user.go", "AdminUpdateUser", "list sessions", user.ID, err)
		}
		for _, tk := range tokens {
			if err := config.RemoveRedisKey("Token:" + tk); err != nil {
				continue
			}
			_ = config.RemoveRedisSetMember("Tokens:"+user.Email, tk)
		}
	}

	user.PrepareGive()
	return &user, nil
}
