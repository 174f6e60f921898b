package domain

import "time"

type AreaKind string

const (
	AreaBuiltin AreaKind = "builtin"
	AreaDynamic AreaKind = "dynamic"
)

// Built-in area ids. NotAvailable is the sentinel selected when the user wants
// to register a brand-new area instead of picking an existing one.
const (
	AreaSmallMining     = "pequena-mineria"
	AreaBlastingService = "servicio-voladura"
	AreaHauling         = "arrime"
	AreaNotAvailable    = "no-disponible"
)

type Area struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      AreaKind  `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

type AttachmentKind string

const (
	KindPhoto AttachmentKind = "photo"
	KindImage AttachmentKind = "image"
	KindFile  AttachmentKind = "file"
	KindAudio AttachmentKind = "audio"
)

// Valid reports whether k is one of the four known attachment kinds.
func (k AttachmentKind) Valid() bool {
	switch k {
	case KindPhoto, KindImage, KindFile, KindAudio:
		return true
	}
	return false
}

// Attachment is metadata about an uploaded or captured file. The bytes
// themselves live in the file store under StorageKey, never in this record.
type Attachment struct {
	ID         string         `json:"id"`
	AreaID     string         `json:"areaId"`
	Name       string         `json:"name"`
	Kind       AttachmentKind `json:"type"`
	MimeType   string         `json:"mimeType,omitempty"`
	SizeBytes  int64          `json:"size"`
	StorageKey string         `json:"storageKey,omitempty"`
	SavedAt    time.Time      `json:"savedAt"`
}

type AttachmentStats struct {
	Count          int                    `json:"count"`
	TotalSizeBytes int64                  `json:"totalSize"`
	CountByKind    map[AttachmentKind]int `json:"byType"`
}

// AreaData is the free-form per-area record. Optional fields are pointers so
// a partial update can tell "unset" apart from "set to empty".
type AreaData struct {
	AreaID          string    `json:"areaId"`
	Description     *string   `json:"description,omitempty"`
	Result          *string   `json:"result,omitempty"`
	Observation     *string   `json:"observation,omitempty"`
	AttachmentCount *int      `json:"attachmentCount,omitempty"`
	LastUpdated     time.Time `json:"lastUpdated,omitzero"`
}
