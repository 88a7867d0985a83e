package models

import "encoding/json"

// Paging is the backend's paging block. Page is zero-based on the wire.
type Paging struct {
	Page      int `json:"page"`
	Size      int `json:"size"`
	Totals    int `json:"totals"`
	TotalPage int `json:"totalPage"`
}

// DefaultPaging is used when an envelope is built locally.
var DefaultPaging = Paging{Page: 1, Size: 10, Totals: 0, TotalPage: 0}

// Envelope is the uniform response shape of the inventory API.
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Paging  Paging `json:"paging"`
}

// OK reports whether the backend marked the response as successful.
// Status 0 is what locally built envelopes carry and counts as success.
func (e Envelope[T]) OK() bool {
	return e.Status == 0 || (e.Status >= 200 && e.Status < 300)
}

// NewEnvelope builds an envelope around data with default paging.
func NewEnvelope[T any](data T, message string, status int) Envelope[T] {
	return Envelope[T]{
		Data:    data,
		Status:  status,
		Message: message,
		Paging:  DefaultPaging,
	}
}

// RawEnvelope keeps data undecoded until the caller knows its type.
type RawEnvelope = Envelope[json.RawMessage]

// DecodeData converts a raw envelope into a typed one.
func DecodeData[T any](raw RawEnvelope) (Envelope[T], error) {
	out := Envelope[T]{Status: raw.Status, Message: raw.Message, Paging: raw.Paging}
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw.Data, &out.Data); err != nil {
		return out, err
	}
	return out, nil
}
