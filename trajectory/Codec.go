package trajectory

import (
	"encoding/json"
	"fmt"
	"io"
)

// file is the on-disk representation of a set of trajectories
type file struct {
	Trajectories []Trajectory `json:"trajectories"`
}

// Decode reads a JSON encoded set of trajectories. Each decoded
// trajectory is validated.
func Decode(r io.Reader) ([]Trajectory, error) {
	var f file
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode: could not decode trajectories: %w",
			err)
	}

	if len(f.Trajectories) == 0 {
		return nil, &Error{Op: "decode", Err: ErrEmpty}
	}
	for i, t := range f.Trajectories {
		if err := t.Validate(); err != nil {
			return nil, &Error{
				Op:  "decode",
				Err: fmt.Errorf("trajectory %d: %w", i, err),
			}
		}
	}
	return f.Trajectories, nil
}

// Encode writes trajectories as JSON
func Encode(w io.Writer, trajs []Trajectory) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(file{Trajectories: trajs}); err != nil {
		return fmt.Errorf("encode: could not encode trajectories: %w", err)
	}
	return nil
}
