package domain

import "context"

// ServicePort defines the service contract for run status reads
type ServicePort interface {
	Run(ctx context.Context, id string) (Run, error)
	Runs(ctx context.Context, q RunsQuery) ([]Run, error)
	Harvest(ctx context.Context, id string) (Harvest, error)
	Record(ctx context.Context, key string) (Record, error)
	ConfigVersions(ctx context.Context, key, column string, q VersionsQuery) ([]ConfigVersion, error)
}
