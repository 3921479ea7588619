package resource

import "fmt"

// The helpers below never modify the snapshot they are given.

func appendResource[R Resource[R]](snapshot []R, item R) []R {
	next := make([]R, 0, len(snapshot)+1)
	next = append(next, snapshot...)
	return append(next, item)
}

// indexOfResource returns -1 when id is absent.
func indexOfResource[R Resource[R]](snapshot []R, id string) (int, error) {
	found := -1
	matches := 0
	for index, item := range snapshot {
		if item.ResourceID() != id {
			continue
		}
		matches++
		if found < 0 {
			found = index
		}
	}
	if matches > 1 {
		return -1, fmt.Errorf("%w: %q appears %d times", ErrDuplicateResource, id, matches)
	}
	return found, nil
}

func replaceResource[R Resource[R]](snapshot []R, item R) ([]R, bool, error) {
	index, err := indexOfResource(snapshot, item.ResourceID())
	if err != nil {
		return nil, false, err
	}
	if index < 0 {
		return snapshot, false, nil
	}
	next := make([]R, len(snapshot))
	copy(next, snapshot)
	next[index] = item
	return next, true, nil
}

func removeResource[R Resource[R]](snapshot []R, id string) ([]R, bool, error) {
	index, err := indexOfResource(snapshot, id)
	if err != nil {
		return nil, false, err
	}
	if index < 0 {
		return snapshot, false, nil
	}
	next := make([]R, 0, len(snapshot)-1)
	next = append(next, snapshot[:index]...)
	next = append(next, snapshot[index+1:]...)
	return next, true, nil
}
