package coherence

import (
	"fmt"

	"github.com/sarchlab/mesisim/timing/cache"
)

// CheckInvariant verifies the global MESI invariant over caches: for every
// block, if one cache holds it Modified or Exclusive, no other cache holds a
// valid copy. It also checks that no cache holds a block in two ways.
func CheckInvariant(caches []*cache.Cache) error {
	if len(caches) == 0 {
		return nil
	}

	sets := caches[0].Sets()
	for index := 0; index < sets; index++ {
		if err := checkSet(caches, index); err != nil {
			return err
		}
	}

	return nil
}

func checkSet(caches []*cache.Cache, index int) error {
	for core, ca := range caches {
		for way := 0; way < ca.Ways(); way++ {
			line := ca.Line(index, way)
			if !line.Valid {
				continue
			}

			if err := checkDuplicates(ca, core, index, way, line); err != nil {
				return err
			}

			if !line.State.IsOwned() {
				continue
			}

			for other, oc := range caches {
				if other == core {
					continue
				}

				otherWay, ok := oc.Lookup(index, line.Tag)
				if !ok {
					continue
				}

				return fmt.Errorf(
					"set %d tag 0x%x: core %d holds %s while core %d holds %s",
					index, line.Tag, core, line.State,
					other, oc.State(index, otherWay))
			}
		}
	}

	return nil
}

func checkDuplicates(ca *cache.Cache, core, index, way int, line cache.Line) error {
	for w := way + 1; w < ca.Ways(); w++ {
		other := ca.Line(index, w)
		if other.Valid && other.Tag == line.Tag {
			return fmt.Errorf("set %d tag 0x%x: core %d holds ways %d and %d",
				index, line.Tag, core, way, w)
		}
	}
	return nil
}
