package flow

import (
	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/diagnostic"
)

// JoinOperator incrementally maintains an equi-join between its two
// upstreams. Each side buffers its own rows, keyed by the join column's
// value, in per-operator state; a change on either side looks up the
// opposite side's bucket and emits one FlowChange per resulting match.
type JoinOperator struct {
	LeftKey, RightKey string
	Cache             *StateCache[joinBucket]
}

type joinBucket struct {
	Left  []map[string]columnarJSON `json:"left"`
	Right []map[string]columnarJSON `json:"right"`
}

// ProcessLeft handles one change arriving from the left upstream.
func (o *JoinOperator) ProcessLeft(change FlowChange) ([]FlowChange, error) {
	return o.process(change, true)
}

// ProcessRight handles one change arriving from the right upstream.
func (o *JoinOperator) ProcessRight(change FlowChange) ([]FlowChange, error) {
	return o.process(change, false)
}

func (o *JoinOperator) process(change FlowChange, left bool) ([]FlowChange, error) {
	row := change.After
	if row == nil {
		row = change.Before
	}
	keyCol := o.RightKey
	if left {
		keyCol = o.LeftKey
	}
	v, ok := row[keyCol]
	if !ok {
		return nil, diagnostic.New(diagnostic.CodeResolveUnknownName, "unknown join column").WithNote(keyCol)
	}
	stateKey := []byte(v.String())

	zero := joinBucket{}
	bucket, err := o.Cache.Update(stateKey, zero, func(b joinBucket) joinBucket {
		if left {
			switch change.Kind {
			case ChangeInsert:
				b.Left = append(b.Left, rowToJSON(change.After))
			case ChangeDelete:
				b.Left = removeRow(b.Left, rowToJSON(change.Before))
			case ChangeUpdate:
				b.Left = removeRow(b.Left, rowToJSON(change.Before))
				b.Left = append(b.Left, rowToJSON(change.After))
			}
		} else {
			switch change.Kind {
			case ChangeInsert:
				b.Right = append(b.Right, rowToJSON(change.After))
			case ChangeDelete:
				b.Right = removeRow(b.Right, rowToJSON(change.Before))
			case ChangeUpdate:
				b.Right = removeRow(b.Right, rowToJSON(change.Before))
				b.Right = append(b.Right, rowToJSON(change.After))
			}
		}
		return b
	})
	if err != nil {
		return nil, err
	}

	var out []FlowChange
	for _, l := range bucket.Left {
		for _, r := range bucket.Right {
			merged := map[string]columnar.Value{}
			for k, v := range l {
				merged[k] = fromJSON(v)
			}
			for k, v := range r {
				merged[k] = fromJSON(v)
			}
			out = append(out, FlowChange{Kind: ChangeUpdate, After: merged})
		}
	}
	return out, nil
}
