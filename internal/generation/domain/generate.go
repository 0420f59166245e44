package domain

//go:generate mockgen -destination=mock/provider_mock.go -package=mock github.com/smallbiznis/genstudio/internal/generation/domain Provider
