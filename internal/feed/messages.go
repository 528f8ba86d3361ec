package feed

import (
	"encoding/json"
	"time"
)

// ChangeNotice tells other replicas that a user's collection changed. It
// carries no record data; receivers reload from storage.
type ChangeNotice struct {
	UserID     string    `json:"userId"`
	Collection string    `json:"collection"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChangeNotice creates a notice stamped with the current time.
func NewChangeNotice(userID, collection string) *ChangeNotice {
	return &ChangeNotice{
		UserID:     userID,
		Collection: collection,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the notice to JSON bytes.
func (n *ChangeNotice) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// ChangeNoticeFromJSON decodes a notice.
func ChangeNoticeFromJSON(data []byte) (*ChangeNotice, error) {
	var n ChangeNotice
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
