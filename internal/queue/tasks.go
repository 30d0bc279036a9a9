package queue

const TypeCachePrewarm = "tts:prewarm"

// CachePrewarmPayload replays one synthesis request through the regular
// dispatcher so the result lands in the cache under its usual fingerprint.
type CachePrewarmPayload struct {
	JobID           string  `json:"job_id"`
	Text            string  `json:"text"`
	Mode            string  `json:"mode"`
	Voice           string  `json:"voice"`
	SpeakingRate    float64 `json:"speaking_rate,omitempty"`
	PreferredFormat string  `json:"preferred_format,omitempty"`
}
