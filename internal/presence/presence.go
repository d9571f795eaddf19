package presence

// Activity type codes as delivered by Lanyard/Discord.
const (
	TypePlaying      = 0
	TypeStreaming    = 1
	TypeListening    = 2
	TypeWatching     = 3
	TypeCustomStatus = 4
	TypeCompeting    = 5
)

type Timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Activity is one rich-presence entry for a user.
type Activity struct {
	ID            string      `json:"id,omitempty"`
	Name          string      `json:"name"`
	Type          int         `json:"type"`
	URL           string      `json:"url,omitempty"`
	CreatedAt     int64       `json:"created_at,omitempty"`
	Timestamps    *Timestamps `json:"timestamps,omitempty"`
	ApplicationID string      `json:"application_id,omitempty"`
	Details       string      `json:"details,omitempty"`
	State         string      `json:"state,omitempty"`
	Assets        *Assets     `json:"assets,omitempty"`
}

// Spotify is the currently-playing track, when the user is listening.
type Spotify struct {
	TrackID     string     `json:"track_id"`
	Timestamps  Timestamps `json:"timestamps"`
	Song        string     `json:"song"`
	Artist      string     `json:"artist"`
	AlbumArtURL string     `json:"album_art_url"`
	Album       string     `json:"album"`
}

// Snapshot is a point-in-time capture of a user's presence. UpdatedAt is
// epoch milliseconds of when it was taken (for live fetches) or persisted
// (for cached copies).
type Snapshot struct {
	Activities []Activity `json:"activities"`
	Spotify    *Spotify   `json:"spotify"`
	UpdatedAt  int64      `json:"updatedAt"`
}

// Empty reports whether the snapshot carries no activities and no track.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Activities) == 0 && s.Spotify == nil)
}

// SessionStart returns the epoch-millisecond start of the activity's
// current session, or 0 when none is known.
func (a Activity) SessionStart() int64 {
	if a.Timestamps == nil {
		return 0
	}
	return a.Timestamps.Start
}
