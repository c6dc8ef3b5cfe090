package admin

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tontine-app/database"
	"tontine-app/internal/app/http/middleware"
	"tontine-app/internal/domain/access"
	"tontine-app/internal/domain/users"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errRoleNotGrantable = errors.New("role cannot be granted by this administrator")

type AdminUser struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Lastname  string    `json:"lastname"`
	Tel       string    `json:"tel"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	SfdID     *string   `json:"sfd_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateUserInput struct {
	Name     string  `json:"name" binding:"required"`
	Lastname string  `json:"lastname"`
	Tel      string  `json:"tel"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required"`
	Role     string  `json:"role" binding:"required"`
	SfdID    *string `json:"sfd_id"`
}

func toAdminUser(u users.User) AdminUser {
	return AdminUser{
		ID:        u.ID,
		Name:      u.Name,
		Lastname:  u.Lastname,
		Tel:       u.Tel,
		Email:     u.Email,
		Role:      u.Role,
		SfdID:     u.SfdID,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// CanGrant reports whether an administrator holding actor may create an account with role.
func CanGrant(actor, role access.Role) error {
	switch actor {
	case access.RoleAdminPlateforme:
		return nil
	case access.RoleAdminSFD:
		if role == access.RoleAdminPlateforme {
			return errRoleNotGrantable
		}
		return nil
	}
	return errRoleNotGrantable
}

// ListAllUsers returns every account for platform admins, and the SFD's own accounts for SFD admins.
func ListAllUsers(c *gin.Context) {
	s := middleware.SessionFromContext(c)

	q := database.DB.Order("created_at DESC")
	if s.Role == access.RoleAdminSFD {
		var self users.User
		if err := database.DB.First(&self, c.GetUint("user_id")).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		if self.SfdID == nil {
			c.JSON(http.StatusOK, []AdminUser{})
			return
		}
		q = q.Where("sfd_id = ?", *self.SfdID)
	}

	var list []users.User
	if err := q.Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	out := make([]AdminUser, 0, len(list))
	for _, u := range list {
		out = append(out, toAdminUser(u))
	}
	c.JSON(http.StatusOK, out)
}

func CreateUser(c *gin.Context) {
	var input CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := access.ParseRole(input.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role", "details": gin.H{"role": input.Role}})
		return
	}

	s := middleware.SessionFromContext(c)
	if err := CanGrant(s.Role, role); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	if !users.IsPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters with letters and numbers"})
		return
	}

	// SFD admins can only staff their own SFD
	sfdID := input.SfdID
	if s.Role == access.RoleAdminSFD {
		var self users.User
		if err := database.DB.First(&self, c.GetUint("user_id")).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		sfdID = self.SfdID
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	var count int64
	if err := database.DB.Model(&users.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	pw := string(hashed)

	user := users.User{
		Name:         input.Name,
		Lastname:     input.Lastname,
		Tel:          input.Tel,
		Email:        email,
		Password:     &pw,
		AuthProvider: users.ProviderLocal,
		Role:         string(role),
		SfdID:        sfdID,
		IsActive:     true,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		// lost a race with another create on the unique email index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, toAdminUser(user))
}
