package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gcpfirestore "cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/acertamais-backend/pkg/db/models"
)

// Legacy collection names written by the vendor back office.
const (
	collectionSegments = "segmentos"
	collectionVendors  = "credenciados"
	collectionServices = "servicos"
)

// Firestore caps "in" filters at 30 values.
const firestoreInLimit = 30

type collectionSource interface {
	Collection(name string) *gcpfirestore.CollectionRef
}

type fsSegment struct {
	Name string `firestore:"nome"`
}

type fsVendor struct {
	Name     string `firestore:"nomeFantasia"`
	Address  string `firestore:"endereco"`
	Segment  string `firestore:"segmento"`
	ImageURL string `firestore:"imagemUrl"`
	Plan     string `firestore:"plano"`
	Phone    string `firestore:"telefone"`
}

type fsService struct {
	Name            string   `firestore:"nome_servico"`
	Description     string   `firestore:"descricao"`
	OriginalPrice   float64  `firestore:"preco_original"`
	DiscountedPrice *float64 `firestore:"preco_com_desconto"`
	ImageURL        string   `firestore:"imagemUrl"`
	VendorID        string   `firestore:"credenciado_id"`
}

// FirestoreRepository reads the catalog from the legacy Firestore collections.
type FirestoreRepository struct {
	src collectionSource
}

func NewFirestoreRepository(src collectionSource) *FirestoreRepository {
	return &FirestoreRepository{src: src}
}

func (r *FirestoreRepository) ListSegments(ctx context.Context) ([]models.Segment, error) {
	it := r.src.Collection(collectionSegments).Documents(ctx)
	defer it.Stop()

	var out []models.Segment
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc fsSegment
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode segment %s: %w", snap.Ref.ID, err)
		}
		out = append(out, segmentFromDoc(snap.Ref.ID, doc))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *FirestoreRepository) ListVendors(ctx context.Context, segmentID string) ([]models.Vendor, error) {
	q := r.src.Collection(collectionVendors).Query
	if segmentID != "" {
		q = q.Where("segmento", "==", segmentID)
	}
	out, err := r.collectVendors(q.Documents(ctx))
	if err != nil {
		return nil, err
	}
	sortVendors(out)
	return out, nil
}

func (r *FirestoreRepository) GetVendor(ctx context.Context, id string) (*models.Vendor, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	snap, err := r.src.Collection(collectionVendors).Doc(id).Get(ctx)
	if err != nil {
		return nil, firestoreNotFound(err)
	}
	var doc fsVendor
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode vendor %s: %w", id, err)
	}
	v := vendorFromDoc(id, doc)
	return &v, nil
}

func (r *FirestoreRepository) VendorsByIDs(ctx context.Context, ids []string) ([]models.Vendor, error) {
	col := r.src.Collection(collectionVendors)
	var out []models.Vendor
	for start := 0; start < len(ids); start += firestoreInLimit {
		end := start + firestoreInLimit
		if end > len(ids) {
			end = len(ids)
		}
		refs := make([]*gcpfirestore.DocumentRef, 0, end-start)
		for _, id := range ids[start:end] {
			refs = append(refs, col.Doc(id))
		}
		chunk, err := r.collectVendors(col.Where(gcpfirestore.DocumentID, "in", refs).Documents(ctx))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (r *FirestoreRepository) ListServices(ctx context.Context, vendorID string) ([]models.Service, error) {
	q := r.src.Collection(collectionServices).Query
	if vendorID != "" {
		q = q.Where("credenciado_id", "==", vendorID)
	}
	it := q.Documents(ctx)
	defer it.Stop()

	var out []models.Service
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc fsService
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode service %s: %w", snap.Ref.ID, err)
		}
		out = append(out, serviceFromDoc(snap.Ref.ID, doc))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *FirestoreRepository) GetService(ctx context.Context, id string) (*models.Service, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	snap, err := r.src.Collection(collectionServices).Doc(id).Get(ctx)
	if err != nil {
		return nil, firestoreNotFound(err)
	}
	var doc fsService
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode service %s: %w", id, err)
	}
	svc := serviceFromDoc(id, doc)
	return &svc, nil
}

func (r *FirestoreRepository) collectVendors(it *gcpfirestore.DocumentIterator) ([]models.Vendor, error) {
	defer it.Stop()
	var out []models.Vendor
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		var doc fsVendor
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode vendor %s: %w", snap.Ref.ID, err)
		}
		out = append(out, vendorFromDoc(snap.Ref.ID, doc))
	}
}

func firestoreNotFound(err error) error {
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func segmentFromDoc(id string, doc fsSegment) models.Segment {
	return models.Segment{ID: id, Name: strings.TrimSpace(doc.Name)}
}

func vendorFromDoc(id string, doc fsVendor) models.Vendor {
	return models.Vendor{
		ID:        id,
		Name:      strings.TrimSpace(doc.Name),
		Address:   optionalString(doc.Address),
		SegmentID: optionalString(doc.Segment),
		ImageURL:  optionalString(doc.ImageURL),
		PlanID:    optionalString(doc.Plan),
		Phone:     optionalString(doc.Phone),
	}
}

func serviceFromDoc(id string, doc fsService) models.Service {
	svc := models.Service{
		ID:            id,
		VendorID:      strings.TrimSpace(doc.VendorID),
		Name:          strings.TrimSpace(doc.Name),
		Description:   doc.Description,
		OriginalPrice: decimal.NewFromFloat(doc.OriginalPrice).Round(2),
		ImageURL:      optionalString(doc.ImageURL),
	}
	if doc.DiscountedPrice != nil {
		svc.DiscountedPrice = decimal.NewNullDecimal(decimal.NewFromFloat(*doc.DiscountedPrice).Round(2))
	}
	return svc
}

func sortVendors(vendors []models.Vendor) {
	sort.SliceStable(vendors, func(i, j int) bool {
		if vendors[i].Name == vendors[j].Name {
			return vendors[i].ID < vendors[j].ID
		}
		return vendors[i].Name < vendors[j].Name
	})
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
