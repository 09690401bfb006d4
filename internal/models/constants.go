package models

import "time"

const (
	// DefaultDraftTTL время жизни черновика записи в хранилище
	DefaultDraftTTL = 24 * time.Hour

	// DefaultCatalogCacheTTL время жизни кэша услуг и специалистов
	DefaultCatalogCacheTTL = 5 * time.Minute

	// DefaultRequestTimeout таймаут одного запроса к бэкенду
	DefaultRequestTimeout = 10 * time.Second

	// GenericFailureMessage показывается, когда бэкенд не вернул сообщение об ошибке
	GenericFailureMessage = "Couldn't complete the request. Please try again."
)
