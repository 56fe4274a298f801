package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/phamqv/storefront/internal/domain/models"
)

// ReportRepository stores the output of the scheduled financial summary job.
type ReportRepository struct {
	coll *mongo.Collection
}

// NewReportRepository creates a report repository bound to the given database.
func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{coll: db.Collection(dailyReportsCollection)}
}

// SaveDailyReport saves a daily financial report to the database.
func (r *ReportRepository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	_, err := r.coll.InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to insert daily report: %w", err)
	}
	return nil
}
