package handler

import (
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/finance-tracker/internal/config"
	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/resource"
	"github.com/iliyamo/finance-tracker/internal/service"
	"github.com/iliyamo/finance-tracker/internal/session"
	"github.com/iliyamo/finance-tracker/internal/storage"
)

// Deps bundles everything the handlers are built from. Each handler keeps
// only the parts it uses.
type Deps struct {
	Cfg        config.Config
	Log        *logrus.Logger
	Users      *repository.UserRepo
	Tokens     *repository.TokenRepo
	Categories *repository.CategoryRepo
	Expenses   *repository.EntryRepo[model.Expense]
	Incomes    *repository.EntryRepo[model.Income]
	Sessions   *session.Manager
	Images     *storage.ImageStore
	Dashboard  *service.Dashboard
	Publisher  service.Publisher
}

func (d Deps) serializer() resource.Serializer {
	return resource.Serializer{BaseURL: d.Cfg.AppURL}
}

func (d Deps) events() Events {
	return Events{Publisher: d.Publisher, Log: d.Log}
}
