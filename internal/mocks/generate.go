package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name ProgressRepository --dir ../domain/onboarding --output domain/onboarding --outpkg onboardingmock --filename progress_repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name SessionRepository --dir ../domain/onboarding --output domain/onboarding --outpkg onboardingmock --filename session_repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name SnapshotRepository --dir ../domain/location --output domain/location --outpkg locationmock --filename snapshot_repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Detector --dir ../domain/location --output domain/location --outpkg locationmock --filename detector_mock.go
