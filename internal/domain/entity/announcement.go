package entity

// AnnouncementField is a labelled value rendered inside an announcement.
type AnnouncementField struct {
	Name   string
	Value  string
	Inline bool
}

// Announcement is the channel-agnostic notification payload built for a
// newly discovered item. Notifier implementations translate it into their
// wire format (a Discord embed, a log line, ...).
type Announcement struct {
	ItemID       ItemID
	Header       string
	Title        string
	URL          string
	Description  string
	Color        int
	Fields       []AnnouncementField
	ThumbnailURL string
}
