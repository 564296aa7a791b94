package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pizzeria/server/internal/models"
)

// RequireStaffPIN - middleware для кухонных и админских эндпоинтов.
// PIN приходит в заголовке X-Staff-PIN и сверяется с bcrypt-хэшами
// активных сотрудников
func RequireStaffPIN(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		pin := c.GetHeader("X-Staff-PIN")
		if pin == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "staff pin required"})
			return
		}

		var staff []models.KitchenStaff
		if err := db.Where("is_active = ?", true).Find(&staff).Error; err != nil {
			log.Printf("⚠️ Ошибка загрузки сотрудников кухни: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not verify pin"})
			return
		}

		for _, s := range staff {
			if bcrypt.CompareHashAndPassword([]byte(s.PINHash), []byte(pin)) == nil {
				c.Set("staff_id", s.ID)
				c.Set("staff_name", s.Name)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": models.ErrStaffPINInvalid.Error()})
	}
}
