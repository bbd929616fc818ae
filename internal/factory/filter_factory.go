package factory

import (
	"fmt"

	"github.com/mikey/spam-verdict/internal/adapters/filter"
	"github.com/mikey/spam-verdict/internal/adapters/httpapi"
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ClassifierService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *core.ClassifierService) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateEmailFilter creates an email filter based on server.filter_type
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	filterType := f.cfg.GetString("server.filter_type")

	switch filterType {
	case "http", "":
		httpCfg, err := f.cfg.GetHTTP()
		if err != nil {
			return nil, err
		}
		return httpapi.NewServer(f.service, f.logger, httpCfg), nil
	case "postfix":
		postfixCfg, err := f.cfg.GetPostfix()
		if err != nil {
			return nil, err
		}
		return filter.NewPostfixFilter(f.service, f.logger, postfixCfg), nil
	case "cli":
		return filter.NewCliFilter(f.service, f.logger, f.cfg.GetBool("cli.verbose"))
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", filterType)
	}
}
