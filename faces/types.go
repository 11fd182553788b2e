package faces

import "encoding/json"

// Rectangle is a face bounding box in image pixel coordinates.
type Rectangle struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectedFace is one face as reported by the capability service. FaceID is
// transient (the service forgets it after a while); Persist exchanges it for
// a durable handle.
type DetectedFace struct {
	FaceID     string          `json:"face_id"`
	Rectangle  Rectangle       `json:"rectangle"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
	Confidence float64         `json:"confidence"`
}
