package models

import (
	"server/utils"

	"gorm.io/gorm"
)

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	CreatedAt int64
	UpdatedAt int64
	Name      string `gorm:"type:varchar(100)"`
	Email     string `gorm:"type:varchar(150);index:uniq_email,unique"`
	Password  string `gorm:"type:varchar(128)"`
	PassSalt  string `gorm:"type:varchar(200)"`
	IsAdmin   bool   `gorm:"not null;default:0"`
	// Guest accounts are created when an invite link is redeemed and are
	// scoped to the event they joined.
	IsGuest      bool    `gorm:"not null;default:0"`
	GuestEventID *uint64 `gorm:"default:null"`
}

const saltSize = 60

func UserCreate(db *gorm.DB, name, email, plainTextPassword string) (u User, err error) {
	u.Email = email
	u.Name = name
	u.PassSalt = utils.RandSalt(saltSize)
	u.Password = utils.Sha512String(plainTextPassword + u.PassSalt)
	return u, db.Create(&u).Error
}

// GuestCreate registers an account for a redeemed invite link. Guests have no
// password and cannot log in again once their session expires.
func GuestCreate(db *gorm.DB, name string, eventID uint64) (u User, err error) {
	u.Name = name
	u.Email = "guest-" + utils.Rand16BytesToBase62() + "@invited"
	u.IsGuest = true
	u.GuestEventID = &eventID
	return u, db.Create(&u).Error
}

func UserLogin(db *gorm.DB, email, plainTextPassword string) (u User, success bool) {
	if db.First(&u, "email = ?", email).Error != nil {
		return User{}, false
	}
	if u.IsGuest || u.Password != utils.Sha512String(plainTextPassword+u.PassSalt) {
		return User{}, false
	}
	return u, true
}

func (u *User) SetPassword(plainTextPassword string) {
	u.PassSalt = utils.RandSalt(saltSize)
	u.Password = utils.Sha512String(plainTextPassword + u.PassSalt)
}

// CanAccessEvent reports whether the user may read or contribute to the event.
// Owners and admins always can; guests only for the event they were invited to.
func (u *User) CanAccessEvent(event *Event) bool {
	if u.IsAdmin || event.OwnerID == u.ID {
		return true
	}
	if u.IsGuest {
		return u.GuestEventID != nil && *u.GuestEventID == event.ID
	}
	return true
}
