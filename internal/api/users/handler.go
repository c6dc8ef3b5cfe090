package users

import (
	"net/http"

	"tontine-app/database"
	"tontine-app/internal/domain/access"
	"tontine-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

func GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	resp, err := BuildMeResponse(user)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Access configuration error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BuildMeResponse fails when the stored role is unknown rather than guessing a dashboard.
func BuildMeResponse(user users.User) (MeResponse, error) {
	role, err := user.AccessRole()
	if err != nil {
		return MeResponse{}, err
	}
	profile, err := access.ProfileFor(role)
	if err != nil {
		return MeResponse{}, err
	}

	return MeResponse{
		User: UserDTO{
			ID:       user.ID,
			Email:    user.Email,
			Name:     user.Name,
			Lastname: user.Lastname,
			Tel:      stringPtrIfNotEmpty(user.Tel),
			SfdID:    user.SfdID,
		},
		Access: AccessDTO{
			Role:           string(profile.Role),
			Label:          profile.Label,
			SidebarVariant: string(profile.SidebarVariant),
			DefaultRoute:   profile.DefaultRoute,
		},
	}, nil
}

func stringPtrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
