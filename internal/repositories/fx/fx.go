package fx

import (
	"github.com/davidnys/redgrid/internal/repositories/feedconfig"
	"github.com/davidnys/redgrid/internal/repositories/postcache"
	"github.com/davidnys/redgrid/internal/repositories/profile"
	"github.com/davidnys/redgrid/internal/repositories/setting"
	"go.uber.org/fx"
)

var Module = fx.Options(
	feedconfig.Module,
	postcache.Module,
	profile.Module,
	setting.Module,
)
