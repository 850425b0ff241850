package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/registration.report/internal/monitoring"
	"github.com/banshee-data/registration.report/internal/results"
)

// Kind names the figure an Item produces.
type Kind string

const (
	KindSuccess Kind = "success"
	KindScatter Kind = "scatter"
	KindFID     Kind = "fid"
)

// Item is one figure in a batch.
type Item struct {
	Kind       Kind
	Dataset    string
	Family     string
	Preprocess string
	Selector   results.Selector
	Fold       results.Fold
}

func (it Item) String() string {
	switch it.Kind {
	case KindSuccess:
		return fmt.Sprintf("success %s %s %s fold %s", it.Dataset, it.Family, it.Preprocess, it.Fold)
	case KindScatter:
		return fmt.Sprintf("scatter %s %s", it.Dataset, it.Selector)
	case KindFID:
		return fmt.Sprintf("fid %s %s", it.Dataset, it.Preprocess)
	default:
		return fmt.Sprintf("%s %s", it.Kind, it.Dataset)
	}
}

// SuccessItems builds the family by dataset grid of success figures.
func SuccessItems(families, datasets []string, preprocess string, fold results.Fold) []Item {
	items := make([]Item, 0, len(families)*len(datasets))
	for _, fam := range families {
		for _, ds := range datasets {
			items = append(items, Item{Kind: KindSuccess, Dataset: ds, Family: fam, Preprocess: preprocess, Fold: fold})
		}
	}
	return items
}

// FIDItems builds one FID figure per preprocessing tag and dataset.
func FIDItems(preprocesses, datasets []string) []Item {
	items := make([]Item, 0, len(preprocesses)*len(datasets))
	for _, pre := range preprocesses {
		for _, ds := range datasets {
			items = append(items, Item{Kind: KindFID, Dataset: ds, Preprocess: pre})
		}
	}
	return items
}

// ScatterGANs are the GAN variants drawn in the scatter grid.
var ScatterGANs = []string{"p2p_A", "p2p_B", "cyc_A", "cyc_B", "drit_A", "drit_B"}

// ScatterItems builds the scatter grid for each dataset: every GAN variant of
// SIFT and aAMD on nopre and hiseq, the plain aAMD and SIFT methods in each
// mode, the MI baseline (and CA on Eliceiri), and VoxelMorph on su and us.
func ScatterItems(datasets []string, fold results.Fold) []Item {
	var items []Item
	add := func(ds, method, mode, pre string) {
		items = append(items, Item{
			Kind:     KindScatter,
			Dataset:  ds,
			Selector: results.Selector{Method: method, Mode: mode, Preprocess: pre},
			Fold:     fold,
		})
	}
	for _, ds := range datasets {
		for _, gan := range ScatterGANs {
			for _, pre := range []string{"nopre", "hiseq"} {
				for _, method := range []string{"SIFT", "aAMD"} {
					add(ds, method+"_"+gan, "b2a", pre)
				}
			}
		}
		for _, mode := range []string{"a2a", "b2a", "b2b"} {
			for _, pre := range []string{"nopre", "hiseq"} {
				add(ds, "aAMD", mode, pre)
			}
			add(ds, "SIFT", mode, "nopre")
		}
		add(ds, MIBaseline.Method, MIBaseline.Mode, MIBaseline.Preprocess)
		if ds == "Eliceiri" {
			add(ds, CABaseline.Method, CABaseline.Mode, CABaseline.Preprocess)
		}
		for _, pre := range []string{"su", "us"} {
			add(ds, "VXM", "b2a", pre)
		}
	}
	return items
}

// BatchResult summarises a batch run.
type BatchResult struct {
	Done   int
	Failed int
	// Skipped counts scatter items with no result files.
	Skipped   int
	Artifacts []string
}

// Batch renders items one after another. A failing item is logged and
// counted; it does not stop the batch. A scatter item whose selector has no
// result files is skipped. Cancelling ctx stops before the next item and
// returns ctx.Err().
func (r *Reporter) Batch(ctx context.Context, items []Item, o WriteOptions) (BatchResult, error) {
	var res BatchResult
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		written, err := r.runItem(it, o)
		res.Artifacts = append(res.Artifacts, written...)
		if it.Kind == KindScatter && errors.Is(err, results.ErrEmptyResultSet) {
			res.Skipped++
			monitoring.Debugf("batch: %s skipped: %v", it, err)
			continue
		}
		if err != nil {
			res.Failed++
			monitoring.Logf("batch: %s failed: %v", it, err)
			continue
		}
		res.Done++
	}
	monitoring.Logf("batch: %d done, %d failed, %d skipped", res.Done, res.Failed, res.Skipped)
	return res, nil
}

func (r *Reporter) runItem(it Item, o WriteOptions) ([]string, error) {
	switch it.Kind {
	case KindSuccess:
		rep, err := r.SuccessCurves(SuccessRequest{Dataset: it.Dataset, Family: it.Family, Preprocess: it.Preprocess, Fold: it.Fold})
		if err != nil {
			return nil, err
		}
		return r.WriteSuccess(rep, o)
	case KindScatter:
		rep, err := r.Scatter(ScatterRequest{Dataset: it.Dataset, Selector: it.Selector, Fold: it.Fold})
		if err != nil {
			return nil, err
		}
		return r.WriteScatter(rep, o)
	case KindFID:
		rep, err := r.FID(FIDRequest{Dataset: it.Dataset, Preprocess: it.Preprocess})
		if err != nil {
			return nil, err
		}
		return r.WriteFID(rep, o)
	default:
		return nil, fmt.Errorf("unknown batch item kind %q", it.Kind)
	}
}
