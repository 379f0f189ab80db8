package models

import "time"

// Identity represents an account within the VidTube platform. Secret fields are
// never serialized.
type Identity struct {
	ID             ID        `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FullName       string    `json:"fullName"`
	PasswordHash   string    `json:"-"`
	Avatar         string    `json:"avatar"`
	AvatarPublicID string    `json:"-"`
	CoverImage     string    `json:"coverImage"`
	CoverPublicID  string    `json:"-"`
	RefreshToken   string    `json:"-"`
	WatchHistory   []ID      `json:"watchHistory"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Sanitized returns a copy without the password digest and refresh token.
func (u Identity) Sanitized() Identity {
	u.PasswordHash = ""
	u.RefreshToken = ""
	if u.WatchHistory != nil {
		u.WatchHistory = append([]ID(nil), u.WatchHistory...)
	}
	return u
}

// ProfileImage names one of the replaceable images on an identity.
type ProfileImage string

const (
	ImageAvatar ProfileImage = "avatar"
	ImageCover  ProfileImage = "cover image"
)

// Profile is the public projection of an identity joined into other views.
func (u Identity) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

// Profile holds the public fields of an identity.
type Profile struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Video is an uploaded media item owned by a channel.
type Video struct {
	ID                ID        `json:"id"`
	OwnerID           ID        `json:"owner"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	VideoFile         string    `json:"videoFile"`
	VideoPublicID     string    `json:"-"`
	Thumbnail         string    `json:"thumbnail"`
	ThumbnailPublicID string    `json:"-"`
	Duration          float64   `json:"duration"`
	Views             int64     `json:"views"`
	IsPublished       bool      `json:"isPublished"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (v Video) Owner() ID { return v.OwnerID }

// VideoView denormalizes a video with its owner's public profile.
type VideoView struct {
	Video
	OwnerProfile Profile `json:"ownerDetails"`
}

// Comment is a remark left on a video.
type Comment struct {
	ID        ID        `json:"id"`
	VideoID   ID        `json:"video"`
	OwnerID   ID        `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Comment) Owner() ID { return c.OwnerID }

// CommentView denormalizes a comment with its author's public profile.
type CommentView struct {
	Comment
	OwnerProfile Profile `json:"ownerDetails"`
}

// Tweet is a short text post on a channel.
type Tweet struct {
	ID        ID        `json:"id"`
	OwnerID   ID        `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t Tweet) Owner() ID { return t.OwnerID }

// TweetView denormalizes a tweet with its owner's public profile.
type TweetView struct {
	Tweet
	OwnerProfile Profile `json:"ownerDetails"`
}

// Playlist is an ordered set of videos curated by its owner.
type Playlist struct {
	ID          ID        `json:"id"`
	OwnerID     ID        `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []ID      `json:"videos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p Playlist) Owner() ID { return p.OwnerID }

// Contains reports whether the playlist references the video.
func (p Playlist) Contains(videoID ID) bool {
	for _, id := range p.VideoIDs {
		if id == videoID {
			return true
		}
	}
	return false
}

// PlaylistView denormalizes a playlist with its owner and, for detail views, its videos.
type PlaylistView struct {
	Playlist
	OwnerProfile Profile `json:"ownerDetails"`
	Videos       []Video `json:"videoDetails,omitempty"`
}

// ChannelProfile is the public channel page of an identity.
type ChannelProfile struct {
	Profile
	Email             string `json:"email"`
	CoverImage        string `json:"coverImage"`
	SubscriberCount   int64  `json:"subscribersCount"`
	SubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// ChannelStats aggregates a channel's dashboard counters.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalSubscribers int64 `json:"totalSubscribers"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
