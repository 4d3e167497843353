package queue

import "encoding/json"

// taskRecord is the JSON wire shape stored under the primary index key.
type taskRecord struct {
	ID        uint64 `json:"id"`
	Status    Status `json:"status"`
	NextEvent uint64 `json:"next_event"`
	TTL       uint64 `json:"ttl"`
	TTR       uint64 `json:"ttr"`
	Pri       int32  `json:"pri"`
	Created   uint64 `json:"created"`
	Utube     string `json:"utube"`
	Data      []byte `json:"data"`
}

func encodeTask(t Task) ([]byte, error) {
	return json.Marshal(taskRecord{
		ID:        t.ID,
		Status:    t.Status,
		NextEvent: t.NextEvent,
		TTL:       t.TTL,
		TTR:       t.TTR,
		Pri:       t.Pri,
		Created:   t.Created,
		Utube:     t.Utube,
		Data:      t.Data,
	})
}

func decodeTask(b []byte) (Task, error) {
	var r taskRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return Task{}, err
	}
	return Task{
		ID:        r.ID,
		Status:    r.Status,
		NextEvent: r.NextEvent,
		TTL:       r.TTL,
		TTR:       r.TTR,
		Pri:       r.Pri,
		Created:   r.Created,
		Utube:     r.Utube,
		Data:      r.Data,
	}, nil
}
