package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/guregu/dynamo/v2"
	"github.com/guregu/dynamo/v2/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-points-api/internal/models"
)

func TestSubmissionRowKeys(t *testing.T) {
	score := 64.0
	submitted := time.Date(2024, 9, 3, 10, 0, 0, 0, time.UTC)
	rec := models.SubmissionRecord{
		ID:          "r1",
		StudentID:   "s7",
		ClassID:     "class-9-A",
		Date:        "2024-09-03",
		TaskID:      "quiz-fractions",
		Category:    models.CategoryQuiz,
		Status:      models.SubmissionCompleted,
		SubmittedAt: &submitted,
		QuizScore:   &score,
	}

	row := newSubmissionRow(rec)
	assert.Equal(t, "class-9-A#2024-09-03", row.ClassDate)
	assert.Equal(t, "s7#quiz-fractions", row.StudentTask)
	assert.Equal(t, rec, row.toModel())
}

func TestSortSubmissionsOrdersByDateStudentTask(t *testing.T) {
	records := []models.SubmissionRecord{
		{Date: "2024-09-03", StudentID: "a", TaskID: "t1"},
		{Date: "2024-09-02", StudentID: "b", TaskID: "t2"},
		{Date: "2024-09-02", StudentID: "b", TaskID: "t1"},
		{Date: "2024-09-02", StudentID: "a", TaskID: "t9"},
	}
	sortSubmissions(records)

	var got []string
	for _, r := range records {
		got = append(got, r.Date+"/"+r.StudentID+"/"+r.TaskID)
	}
	assert.Equal(t, []string{
		"2024-09-02/a/t9",
		"2024-09-02/b/t1",
		"2024-09-02/b/t2",
		"2024-09-03/a/t1",
	}, got)
}

// fakeDynamoClient serves Query from items keyed by table and partition value
// and records batch writes. Filters are not evaluated.
type fakeDynamoClient struct {
	dynamodbiface.DynamoDBAPI

	items    map[string][]dynamo.Item
	queries  []*dynamodb.QueryInput
	writes   []*dynamodb.BatchWriteItemInput
	queryErr error
}

func newFakeDynamoClient() *fakeDynamoClient {
	return &fakeDynamoClient{items: map[string][]dynamo.Item{}}
}

func (f *fakeDynamoClient) put(t *testing.T, table, partition string, row interface{}) {
	t.Helper()
	item, err := dynamo.MarshalItem(row)
	require.NoError(t, err)
	f.items[table+"|"+partition] = append(f.items[table+"|"+partition], item)
}

func (f *fakeDynamoClient) Query(_ context.Context, input *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, input)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	out := &dynamodb.QueryOutput{}
	for _, value := range input.ExpressionAttributeValues {
		s, ok := value.(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		out.Items = append(out.Items, f.items[*input.TableName+"|"+s.Value]...)
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *fakeDynamoClient) BatchWriteItem(_ context.Context, input *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.writes = append(f.writes, input)
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func newFakeDynamoRepository(client *fakeDynamoClient) *DynamoSubmissionRepository {
	return NewDynamoSubmissionRepository(dynamo.NewFromIface(client), "Submissions", "Users", "class_id-index")
}

func TestDynamoSubmissionRepositoryLoadSubmissions(t *testing.T) {
	client := newFakeDynamoClient()
	approved := true
	client.put(t, "Submissions", "class-10-A#2024-09-03", newSubmissionRow(models.SubmissionRecord{
		ID: "r2", StudentID: "s2", ClassID: "class-10-A", Date: "2024-09-03", TaskID: "hw-1",
		Category: models.CategoryHomework, Status: models.SubmissionCompleted, Approved: &approved,
	}))
	client.put(t, "Submissions", "class-10-A#2024-09-02", newSubmissionRow(models.SubmissionRecord{
		ID: "r1", StudentID: "s1", ClassID: "class-10-A", Date: "2024-09-02", TaskID: "hw-1",
		Category: models.CategoryHomework, Status: models.SubmissionAbsent,
	}))
	client.put(t, "Submissions", "class-10-B#2024-09-02", newSubmissionRow(models.SubmissionRecord{
		ID: "other", StudentID: "b1", ClassID: "class-10-B", Date: "2024-09-02", TaskID: "hw-1",
	}))

	week, err := models.NewWeekRange("2024-09-02", 3)
	require.NoError(t, err)

	records, err := newFakeDynamoRepository(client).LoadSubmissions(context.Background(), "class-10-A", week)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, models.SubmissionAbsent, records[0].Status)
	assert.Equal(t, "r2", records[1].ID)
	require.NotNil(t, records[1].Approved)
	assert.True(t, *records[1].Approved)

	require.Len(t, client.queries, 3)
	for _, q := range client.queries {
		assert.Equal(t, "Submissions", *q.TableName)
		assert.Nil(t, q.IndexName)
	}
}

func TestDynamoSubmissionRepositoryLoadSubmissionsError(t *testing.T) {
	client := newFakeDynamoClient()
	client.queryErr = errors.New("throttled")
	week, err := models.NewWeekRange("2024-09-02", 5)
	require.NoError(t, err)

	_, err = newFakeDynamoRepository(client).LoadSubmissions(context.Background(), "class-10-A", week)
	require.Error(t, err)
	assert.ErrorContains(t, err, "class-10-A on 2024-09-02")
	assert.Len(t, client.queries, 1)
}

func TestDynamoSubmissionRepositoryEnrolledStudents(t *testing.T) {
	client := newFakeDynamoClient()
	client.put(t, "Users", "class-10-A", userRow{ID: "s2", ClassID: "class-10-A", Role: "student"})
	client.put(t, "Users", "class-10-A", userRow{ID: "s1", ClassID: "class-10-A", Role: "student"})

	ids, err := newFakeDynamoRepository(client).EnrolledStudents(context.Background(), "class-10-A")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)

	require.Len(t, client.queries, 1)
	query := client.queries[0]
	assert.Equal(t, "Users", *query.TableName)
	require.NotNil(t, query.IndexName)
	assert.Equal(t, "class_id-index", *query.IndexName)
	require.NotNil(t, query.FilterExpression)
}

func TestDynamoSubmissionRepositorySaveSubmissionsBatches(t *testing.T) {
	client := newFakeDynamoClient()
	records := make([]models.SubmissionRecord, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, models.SubmissionRecord{
			ID:        "r",
			StudentID: "s" + string(rune('a'+i%26)) + string(rune('0'+i/26)),
			ClassID:   "class-9-A",
			Date:      "2024-09-02",
			TaskID:    "event-1",
			Category:  models.CategoryParticipation,
			Status:    models.SubmissionCompleted,
		})
	}

	require.NoError(t, newFakeDynamoRepository(client).SaveSubmissions(context.Background(), records))
	require.Len(t, client.writes, 2)
	assert.Len(t, client.writes[0].RequestItems["Submissions"], 25)
	assert.Len(t, client.writes[1].RequestItems["Submissions"], 5)

	put := client.writes[1].RequestItems["Submissions"][0].PutRequest
	require.NotNil(t, put)
	key, ok := put.Item["class_date"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "class-9-A#2024-09-02", key.Value)
}

func TestDynamoSubmissionRepositorySaveSubmissionsEmpty(t *testing.T) {
	client := newFakeDynamoClient()
	require.NoError(t, newFakeDynamoRepository(client).SaveSubmissions(context.Background(), nil))
	assert.Empty(t, client.writes)
}
