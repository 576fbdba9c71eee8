package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Id prefixes for the aggregate collections.
const (
	PrefixProperty = "PRP"
	PrefixBooking  = "BKG"
	PrefixInvoice  = "INV"
	PrefixCase     = "RC"
	PrefixContract = "CTR"
)

// Sequence is a durable monotonic counter, one row per entity prefix.
type Sequence struct {
	Name  string `gorm:"primaryKey;type:varchar(20)"`
	Value int64  `gorm:"not null;default:0"`
}

// NextID issues the next zero-padded id for the given prefix, e.g.
// "BKG-000042". It must run inside the caller's transaction so the
// increment commits together with the record it identifies.
func NextID(tx *gorm.DB, prefix string) (string, error) {
	res := tx.Model(&Sequence{}).Where("name = ?", prefix).
		Update("value", gorm.Expr("value + ?", 1))
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.Create(&Sequence{Name: prefix, Value: 1}).Error; err != nil {
			return "", err
		}
		return fmt.Sprintf("%s-%06d", prefix, 1), nil
	}
	var seq Sequence
	if err := tx.First(&seq, "name = ?", prefix).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", prefix, seq.Value), nil
}
