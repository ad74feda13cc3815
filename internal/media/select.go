package media

// SelectSharp keeps frames whose sharpness meets the threshold. When no frame
// qualifies and candidates exist, the single sharpest candidate is returned so
// downstream stages always have at least one frame to work with.
func SelectSharp(frames []Frame, threshold float64) []Frame {
	if len(frames) == 0 {
		return nil
	}

	var selected []Frame
	for _, frame := range frames {
		if frame.Sharpness >= threshold {
			selected = append(selected, frame)
		}
	}
	if len(selected) > 0 {
		return selected
	}

	best := frames[0]
	for _, frame := range frames[1:] {
		if frame.Sharpness > best.Sharpness {
			best = frame
		}
	}
	return []Frame{best}
}

// SubsampleEven reduces frames to at most max entries spread evenly across the
// input, preserving temporal order. The first frame is always retained.
func SubsampleEven(frames []Frame, max int) []Frame {
	if max <= 0 || len(frames) <= max {
		return frames
	}
	if max == 1 {
		return frames[:1]
	}

	selected := make([]Frame, 0, max)
	step := float64(len(frames)-1) / float64(max-1)
	last := -1
	for i := 0; i < max; i++ {
		idx := int(float64(i)*step + 0.5)
		if idx >= len(frames) {
			idx = len(frames) - 1
		}
		if idx == last {
			continue
		}
		selected = append(selected, frames[idx])
		last = idx
	}
	return selected
}
