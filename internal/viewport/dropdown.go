package viewport

// Position places a dropdown relative to its container.
type Position struct {
	Top   float64 `json:"top"`
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// DropdownPosition anchors a dropdown under button, in container coordinates, as wide as the button.
func DropdownPosition(button, container Rect) Position {
	return Position{
		Top:   button.Bottom - container.Top,
		Left:  button.Left - container.Left,
		Width: button.Width,
	}
}
