package presenter

import "fmt"

// Snapshot is the dynamic game state one frame renders. Ball coordinates are
// in the simulation's 800x600 screen space with y pointing down. Menu.Alpha
// is how far the menu is open, from 0 (playing) to 1 (menu fully open).
type Snapshot struct {
	Ball Ball
	Menu Menu
}

type Ball struct {
	X, Y     float32
	Rotation float32
}

type Menu struct {
	Alpha float32
}

func (s Snapshot) String() string {
	return fmt.Sprintf("ball=(%.2f, %.2f) rot=%.3f menu=%.3f", s.Ball.X, s.Ball.Y, s.Ball.Rotation, s.Menu.Alpha)
}
