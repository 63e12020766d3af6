package registry

import "time"

type Asset struct {
	ID     uint64 `json:"id"`
	Rating int64  `json:"rating"`

	Votes  int64 `json:"votes"`
	Wins   int64 `json:"wins"`
	Losses int64 `json:"losses"`

	Active bool `json:"active"`

	RegisteredAt time.Time `json:"registered_at"`
}

type RegisterRequest struct {
	ID uint64 `json:"id"`
}

type RegisterManyRequest struct {
	IDs []uint64 `json:"ids"`
}

type RegisterManyResponse struct {
	Registered []uint64 `json:"registered"`
	Skipped    []uint64 `json:"skipped"`
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}
