// Package tracking owns the per-frame multi-object tracker.
//
// Responsibilities: Kalman filtering of image-space boxes, track
// lifecycle (tentative, confirmed, coasting, lost), two-stage
// association (age-prioritised cascade followed by IOU fallback) and
// projection of track positions onto the reference map.
// Key types: Detection, Tracklet, Engine.
//
// The engine is single-threaded by contract: each video stream owns its
// own Engine. The coordinate projector handed to NewEngine is read-only
// and may be shared between engines.
package tracking
