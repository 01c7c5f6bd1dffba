package pipeline

import (
	"errors"

	"sdskataster/internal"
	"sdskataster/internal/util"
)

var ErrNoTradeName = errors.New("merged record has no trade name")

// Merge combines the records of several data sheets of one product into a
// single register row: the first non-blank value per text field in input
// order, and the union of the code sets. A non-blank tradeName overrides
// the extracted one.
func Merge(records []internal.Record, tradeName string) (internal.Record, error) {
	out := internal.NewRecord()
	for _, rec := range records {
		out.TradeName = firstPresent(out.TradeName, rec.TradeName)
		out.Manufacturer = firstPresent(out.Manufacturer, rec.Manufacturer)
		out.UNNumber = firstPresent(out.UNNumber, rec.UNNumber)
		out.RevisionDate = firstPresent(out.RevisionDate, rec.RevisionDate)
		out.HazardStatements.Union(rec.HazardStatements)
		out.Pictograms.Union(rec.Pictograms)
	}
	if v := util.NonBlank(tradeName); v != nil {
		out.TradeName = v
	}
	if out.TradeName == nil {
		return out, ErrNoTradeName
	}
	return out, nil
}

func firstPresent(current, next *string) *string {
	if !util.IsBlank(current) {
		return current
	}
	return util.NonBlank(util.Deref(next))
}
