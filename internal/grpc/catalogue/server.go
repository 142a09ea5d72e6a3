package catalogueGrpc

import (
	"context"
	"errors"
	"math"
	"strconv"

	cataloguev1 "github.com/bxiit/protos/gen/go/catalogue"
	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"menu-service/internal/data/models"
	"menu-service/internal/images"
	"menu-service/internal/storage"
)

type Catalogue interface {
	Items(ctx context.Context) ([]models.Item, error)
	Item(ctx context.Context, id int64) (models.Item, error)
	AddItem(ctx context.Context, fields models.ItemFields, upload *images.Upload) (models.Item, error)
}

var errOutOfRange = errors.New("value does not fit the wire type")

type catalogueService struct {
	cataloguev1.UnimplementedCatalogueServiceServer
	catalogue Catalogue
}

// Prices travel as int32 minor units.
var copyOption = copier.Option{
	Converters: []copier.TypeConverter{
		{
			SrcType: int32(0),
			DstType: decimal.Decimal{},
			Fn: func(src interface{}) (interface{}, error) {
				return decimal.New(int64(src.(int32)), -2), nil
			},
		},
		{
			SrcType: decimal.Decimal{},
			DstType: int32(0),
			Fn: func(src interface{}) (interface{}, error) {
				return toCents(src.(decimal.Decimal))
			},
		},
	},
}

// Register - for registering gRPC server
func Register(gRPCServer *grpc.Server, catalogue Catalogue) {
	cataloguev1.RegisterCatalogueServiceServer(gRPCServer, &catalogueService{catalogue: catalogue})
}

func (cs *catalogueService) CreateItem(ctx context.Context, req *cataloguev1.CreateItemRequest) (*cataloguev1.CreateItemResponse, error) {
	if req.GetItem() == nil {
		return nil, status.Error(codes.InvalidArgument, "item is required")
	}
	if req.Item.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if req.Item.Price < 0 {
		return nil, status.Error(codes.InvalidArgument, "price cannot be negative")
	}

	var fields models.ItemFields
	if err := copier.CopyWithOption(&fields, req.Item, copyOption); err != nil {
		return nil, status.Error(codes.Internal, "failed to read item")
	}

	item, err := cs.catalogue.AddItem(ctx, fields, nil)
	if err != nil {
		return nil, status.Error(codes.Internal, "error with create item")
	}

	resp, err := toProto(item)
	if err != nil {
		return nil, encodeError(err)
	}

	return &cataloguev1.CreateItemResponse{Item: resp}, nil
}

func (cs *catalogueService) ListItems(ctx context.Context, _ *cataloguev1.ListItemsRequest) (*cataloguev1.ListItemsResponse, error) {
	items, err := cs.catalogue.Items(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to list items")
	}

	responseItems := make([]*cataloguev1.Item, 0, len(items))
	for _, item := range items {
		it, err := toProto(item)
		if err != nil {
			return nil, encodeError(err)
		}
		responseItems = append(responseItems, it)
	}

	return &cataloguev1.ListItemsResponse{Items: responseItems}, nil
}

func (cs *catalogueService) GetItem(ctx context.Context, req *cataloguev1.GetItemRequest) (*cataloguev1.GetItemResponse, error) {
	id, err := strconv.ParseInt(req.GetId(), 10, 64)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "id must be numeric")
	}

	item, err := cs.catalogue.Item(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			return nil, status.Error(codes.NotFound, "item not found")
		}
		return nil, status.Error(codes.Internal, "failed to get item")
	}

	it, err := toProto(item)
	if err != nil {
		return nil, encodeError(err)
	}

	return &cataloguev1.GetItemResponse{Item: it}, nil
}

func toProto(item models.Item) (*cataloguev1.Item, error) {
	if item.ID > math.MaxInt32 || item.ID < math.MinInt32 {
		return nil, errOutOfRange
	}
	if _, err := toCents(item.Price); err != nil {
		return nil, err
	}

	var it cataloguev1.Item
	if err := copier.CopyWithOption(&it, &item, copyOption); err != nil {
		return nil, err
	}
	it.Id = int32(item.ID)

	return &it, nil
}

func toCents(price decimal.Decimal) (int32, error) {
	cents := price.Shift(2).Round(0)
	if cents.GreaterThan(decimal.NewFromInt(math.MaxInt32)) || cents.LessThan(decimal.NewFromInt(math.MinInt32)) {
		return 0, errOutOfRange
	}

	return int32(cents.IntPart()), nil
}

func encodeError(err error) error {
	if errors.Is(err, errOutOfRange) {
		return status.Error(codes.OutOfRange, "item does not fit the catalogue message")
	}

	return status.Error(codes.Internal, "failed to encode item")
}
