package pipeline

import (
	"os"

	"go.uber.org/zap"

	"github.com/yumyai/phyloclust/logger"
	"github.com/yumyai/phyloclust/pkg/ace"
	"github.com/yumyai/phyloclust/pkg/blastclust"
	"github.com/yumyai/phyloclust/pkg/config"
	"github.com/yumyai/phyloclust/pkg/model"
)

func ingestClusters(run *config.Run, rootname string) (*model.ClusterSet, error) {
	fh, err := os.Open(run.ClusterFile)
	if err != nil {
		return nil, &model.InputError{Msg: "opening cluster source", Err: err}
	}
	defer fh.Close()

	switch run.Datasource {
	case "ace":
		families, err := ace.Parse(fh, ace.Options{})
		if err != nil {
			return nil, err
		}
		cs := model.NewClusterSet(rootname)
		for _, f := range families {
			cs.Add(f)
		}
		cs.Renumber()
		logger.Info("assembly ingested", zap.Int("families", cs.Len()))
		return cs, nil
	case "blast", "":
		var filter blastclust.Filter
		for _, c := range run.ClusterValues {
			filter = append(filter, blastclust.Condition{
				Field: c.Field, Op: c.Op, Threshold: c.Threshold,
			})
		}
		opts := blastclust.Options{Rootname: rootname, Filter: filter}
		cs, err := blastclust.BuildFromTabular(fh, opts)
		if err != nil {
			return nil, err
		}
		logger.Info("blast clusters built", zap.Int("families", cs.Len()))
		return cs, nil
	}
	return nil, &model.InputError{Msg: "unknown cluster datasource " + run.Datasource}
}
