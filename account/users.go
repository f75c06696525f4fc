package account

import (
	"fixflow/bizerror"
	"fixflow/idgen"
	"fixflow/persistence"
	"fixflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
	"golang.org/x/crypto/bcrypt"
)

var (
	userIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateUserFunc       = CreateUser
	QueryUsersFunc       = QueryUsers
	UpdateUserFunc       = UpdateUser
	DeleteUserFunc       = DeleteUser
	AuthenticateUserFunc = AuthenticateUser
)

type User struct {
	ID     types.ID     `json:"id" gorm:"primary_key"`
	Name   string       `json:"name" gorm:"unique_index:uni_user_name"`
	Secret string       `json:"-"`
	Role   session.Role `json:"role"`
}

type UserInfo struct {
	ID   types.ID     `json:"id"`
	Name string       `json:"name"`
	Role session.Role `json:"role"`
}

type UserCreation struct {
	Name   string       `json:"name" binding:"required,lte=255"`
	Secret string       `json:"password" binding:"required"`
	Role   session.Role `json:"role" binding:"required"`
}

type UserUpdating struct {
	Name   string       `json:"name" binding:"required,lte=255"`
	Role   session.Role `json:"role" binding:"required"`
	Secret string       `json:"password"`
}

func HashSecret(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CreateUser(c *UserCreation, sec *session.Session) (*UserInfo, error) {
	if !sec.IsAdmin() {
		return nil, bizerror.ErrForbidden
	}
	if !c.Role.IsValid() {
		return nil, &bizerror.ErrBadParam{}
	}

	secret, err := HashSecret(c.Secret)
	if err != nil {
		return nil, err
	}
	user := User{ID: idgen.NextID(userIdWorker), Name: c.Name, Secret: secret, Role: c.Role}
	if err := persistence.ActiveDataSourceManager.GormDB().Create(&user).Error; err != nil {
		if persistence.IsDuplicateEntryError(err) {
			return nil, bizerror.ErrConflict
		}
		return nil, err
	}
	return &UserInfo{ID: user.ID, Name: user.Name, Role: user.Role}, nil
}

// AuthenticateUser does not distinguish an unknown name from a wrong password.
func AuthenticateUser(name, secret string) (*session.Identity, error) {
	user := User{}
	db := persistence.ActiveDataSourceManager.GormDB()
	if err := db.Where(&User{Name: name}).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, bizerror.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Secret), []byte(secret)); err != nil {
		return nil, bizerror.ErrInvalidCredentials
	}
	return &session.Identity{ID: user.ID, Name: user.Name, Role: user.Role}, nil
}

func QueryUsers(sec *session.Session) ([]UserInfo, error) {
	users := []UserInfo{}
	if err := persistence.ActiveDataSourceManager.GormDB().Model(&User{}).Order("id ASC").Scan(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func UpdateUser(userId types.ID, u *UserUpdating, sec *session.Session) error {
	if !sec.IsAdmin() && userId != sec.Identity.ID {
		return bizerror.ErrForbidden
	}
	if !u.Role.IsValid() {
		return &bizerror.ErrBadParam{}
	}

	return persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		user := User{ID: userId}
		if err := tx.Where(&user).First(&user).Error; err != nil {
			return err
		}
		changes := map[string]interface{}{"name": u.Name, "role": u.Role}
		if u.Secret != "" {
			secret, err := HashSecret(u.Secret)
			if err != nil {
				return err
			}
			changes["secret"] = secret
		}
		if err := tx.Model(&user).Update(changes).Error; err != nil {
			if persistence.IsDuplicateEntryError(err) {
				return bizerror.ErrConflict
			}
			return err
		}
		return nil
	})
}

func DeleteUser(userId types.ID, sec *session.Session) error {
	if !sec.IsAdmin() {
		return bizerror.ErrForbidden
	}
	db := persistence.ActiveDataSourceManager.GormDB().Delete(User{}, "id = ?", userId)
	if db.Error != nil {
		return db.Error
	}
	if db.RowsAffected == 0 {
		return bizerror.ErrNotFound
	}
	return nil
}
