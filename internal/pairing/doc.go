// Package pairing composes downloaded videos with audio from the pool.
//
// Each video claims one track, is cut at min(video, audio+buffer) seconds and
// written as <video>_final.mp4. Claims are released when composition fails and
// retired when it succeeds.
package pairing
