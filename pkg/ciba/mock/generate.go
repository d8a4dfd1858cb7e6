package mock

//go:generate go install github.com/golang/mock/mockgen@v1.6.0
//go:generate mockgen -package mock -destination ./store.mock.go github.com/zitadel/ciba/pkg/ciba Store
//go:generate mockgen -package mock -destination ./callback.mock.go github.com/zitadel/ciba/pkg/ciba CallbackDispatcher
//go:generate mockgen -package mock -destination ./notifier.mock.go github.com/zitadel/ciba/pkg/ciba Notifier
//go:generate mockgen -package mock -destination ./hook.mock.go github.com/zitadel/ciba/pkg/ciba NotificationHook
//go:generate mockgen -package mock -destination ./users.mock.go github.com/zitadel/ciba/pkg/ciba UserDirectory
//go:generate mockgen -package mock -destination ./verifier.mock.go github.com/zitadel/ciba/pkg/ciba HintVerifier
//go:generate mockgen -package mock -destination ./client.mock.go github.com/zitadel/ciba/pkg/ciba Client
