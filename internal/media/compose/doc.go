// Package compose muxes a downloaded clip with a pooled audio track.
//
// The ffmpeg implementation takes the first video stream of the clip and the
// first audio stream of the track, re-encodes them, cuts the result at the
// requested end offset. The output always runs to that offset: longer audio
// is cut and shorter audio leaves a silent tail.
package compose
