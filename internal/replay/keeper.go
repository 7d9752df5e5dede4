package replay

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/robfig/cron/v3"
)

// Keeper fires vault harvests on a cron schedule evaluated against journal
// time rather than wall-clock time.
type Keeper struct {
	schedule cron.Schedule
	caller   common.Address
	next     uint64
}

// NewKeeper parses a standard five-field cron expression. The first harvest
// is the first activation strictly after from.
func NewKeeper(spec string, caller common.Address, from uint64) (*Keeper, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse keeper schedule %q: %w", spec, err)
	}
	k := &Keeper{schedule: schedule, caller: caller}
	k.next = k.after(from)
	return k, nil
}

func (k *Keeper) Caller() common.Address { return k.caller }

// Next returns the next activation, or 0 when the schedule never fires again.
func (k *Keeper) Next() uint64 { return k.next }

// Due returns every activation at or before upTo and advances past them.
func (k *Keeper) Due(upTo uint64) []uint64 {
	var out []uint64
	for k.next != 0 && k.next <= upTo {
		out = append(out, k.next)
		k.next = k.after(k.next)
	}
	return out
}

func (k *Keeper) after(ts uint64) uint64 {
	next := k.schedule.Next(time.Unix(int64(ts), 0).UTC())
	if next.IsZero() {
		return 0
	}
	return uint64(next.Unix())
}
