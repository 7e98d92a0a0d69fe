package engine

import (
	"reflect"
	"testing"

	"github.com/prepline/testprep-backend/internal/model"
	"github.com/rs/zerolog"
)

var defaultCatalog = []string{"physics", "chemistry", "mathematics"}

func TestPartitionerDisplayOrderFollowsCatalog(t *testing.T) {
	questions := []model.Question{
		question("chemistry", "A"),
		question("physics", "A"),
		question("chemistry", "B"),
		question("mathematics", "C"),
	}
	p := NewSubjectPartitioner(questions, defaultCatalog, zerolog.Nop())

	want := []string{"physics", "chemistry", "mathematics"}
	if got := p.Subjects(); !reflect.DeepEqual(got, want) {
		t.Fatalf("subjects = %v, want catalog order %v", got, want)
	}
	if got := p.Active(); got != "physics" {
		t.Fatalf("active = %q, want first catalog subject", got)
	}
}

func TestPartitionerViewPreservesRelativeOrder(t *testing.T) {
	questions := []model.Question{
		question("physics", "A"),    // 0
		question("chemistry", "A"),  // 1
		question("physics", "B"),    // 2
		question("physics", "C"),    // 3
		question("chemistry", "D"),  // 4
	}
	p := NewSubjectPartitioner(questions, defaultCatalog, zerolog.Nop())

	if got := p.ViewFor("physics"); !reflect.DeepEqual(got, []int{0, 2, 3}) {
		t.Fatalf("physics view = %v, want [0 2 3]", got)
	}
	if got := p.ViewFor("chemistry"); !reflect.DeepEqual(got, []int{1, 4}) {
		t.Fatalf("chemistry view = %v, want [1 4]", got)
	}
}

func TestPartitionerFullIndexMapping(t *testing.T) {
	questions := []model.Question{
		question("physics", "A"),
		question("chemistry", "A"),
		question("physics", "B"),
	}
	p := NewSubjectPartitioner(questions, defaultCatalog, zerolog.Nop())

	if idx, ok := p.FullIndex(1); !ok || idx != 2 {
		t.Fatalf("FullIndex(1) = %d,%v, want 2,true", idx, ok)
	}
	if _, ok := p.FullIndex(2); ok {
		t.Fatal("FullIndex past the view end should report !ok")
	}
	if _, ok := p.FullIndex(-1); ok {
		t.Fatal("negative position should report !ok")
	}
}

func TestPartitionerUnknownSubjectBucketsUncategorized(t *testing.T) {
	questions := []model.Question{
		question("physics", "A"),
		question("botany", "A"),
	}
	p := NewSubjectPartitioner(questions, defaultCatalog, zerolog.Nop())

	want := []string{"physics", model.SubjectUncategorized}
	if got := p.Subjects(); !reflect.DeepEqual(got, want) {
		t.Fatalf("subjects = %v, want %v", got, want)
	}
	if got := p.SubjectOf(1); got != model.SubjectUncategorized {
		t.Fatalf("SubjectOf(1) = %q, want uncategorized", got)
	}
}

func TestPartitionerNoCatalogKeepsFirstAppearanceOrder(t *testing.T) {
	questions := []model.Question{
		question("zoology", "A"),
		question("algebra", "A"),
		question("zoology", "B"),
	}
	p := NewSubjectPartitioner(questions, nil, zerolog.Nop())

	want := []string{"zoology", "algebra"}
	if got := p.Subjects(); !reflect.DeepEqual(got, want) {
		t.Fatalf("subjects = %v, want first-appearance order %v", got, want)
	}
}

func TestPartitionerAutoSwitchOnEmptySelection(t *testing.T) {
	questions := []model.Question{
		question("chemistry", "A"),
		question("chemistry", "B"),
	}
	p := NewSubjectPartitioner(questions, defaultCatalog, zerolog.Nop())

	if got := p.Active(); got != "chemistry" {
		t.Fatalf("active = %q, want the only populated subject", got)
	}

	// Selecting an empty subject snaps back to a populated one.
	p.SetActive("physics")
	if got := p.Active(); got != "chemistry" {
		t.Fatalf("active after selecting empty subject = %q, want chemistry", got)
	}
}

func TestPartitionerEmptyState(t *testing.T) {
	p := NewSubjectPartitioner(nil, defaultCatalog, zerolog.Nop())

	if !p.Empty() {
		t.Fatal("partitioner with no questions should report empty")
	}
	if got := p.Active(); got != "" {
		t.Fatalf("active = %q, want blank in empty state", got)
	}
	if got := p.View(); len(got) != 0 {
		t.Fatalf("view = %v, want empty", got)
	}
}

func TestPartitionerRemoveQuestionDrainsSubject(t *testing.T) {
	questions := []model.Question{
		question("physics", "A"),
		question("chemistry", "A"),
	}
	p := NewSubjectPartitioner(questions, defaultCatalog, zerolog.Nop())

	p.RemoveQuestion(0)
	if got := p.Active(); got != "chemistry" {
		t.Fatalf("active after draining physics = %q, want chemistry", got)
	}
	if got := p.ViewFor("physics"); len(got) != 0 {
		t.Fatalf("physics view still has %v", got)
	}
}
