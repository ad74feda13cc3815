// Package media decodes video sources into a bounded set of analysis frames.
//
// Sampling walks the video at a fixed stride, scores each candidate frame by
// Laplacian variance, and keeps frames above the sharpness threshold. When no
// frame clears the threshold the single sharpest candidate is kept so every
// readable video yields at least one frame. Retained frames pass through CLAHE
// contrast enhancement on the luminance channel before being written to the
// job staging directory.
package media
