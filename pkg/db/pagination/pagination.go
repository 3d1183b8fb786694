package pagination

import (
	"encoding/base64"
	"encoding/json"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Cursor marks where the next page starts within an ordered result set.
type Cursor struct {
	Offset int `json:"offset"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// BuildPageInfo trims the look-ahead row fetched past the page size and
// returns the page plus the token for the following page.
func BuildPageInfo[T any](data []*T, page Pagination, offset int) ([]*T, PageInfo) {
	if page.PageSize <= 0 || len(data) <= page.PageSize {
		return data, PageInfo{HasMore: false}
	}

	token, err := EncodeCursor(Cursor{Offset: offset + page.PageSize})
	if err != nil {
		return data[:page.PageSize], PageInfo{HasMore: false}
	}
	return data[:page.PageSize], PageInfo{
		NextPageToken: token,
		HasMore:       true,
	}
}
