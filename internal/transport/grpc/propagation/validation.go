package propagation

import (
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// stringField returns a string field, "" when absent. Non-string values are rejected.
func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", nil
	}
	switch v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return v.GetStringValue(), nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
}

// intField returns a non-negative integral number field, 0 when absent.
func intField(req *structpb.Struct, name string) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return 0, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer", name)
	}
	return int(n.NumberValue), nil
}

// validatePropagateRequest validates the Propagate request.
func validatePropagateRequest(req *structpb.Struct) (definitionID, category string, err error) {
	if definitionID, err = stringField(req, "definition_id"); err != nil {
		return "", "", err
	}
	if definitionID == "" {
		return "", "", status.Error(codes.InvalidArgument, "definition_id is required")
	}
	if category, err = stringField(req, "category"); err != nil {
		return "", "", err
	}
	if category == "" {
		return "", "", status.Error(codes.InvalidArgument, "category is required")
	}
	return definitionID, category, nil
}

// validateClearErrorLogRequest validates the ClearErrorLog request.
func validateClearErrorLogRequest(req *structpb.Struct) (string, error) {
	clearedBy, err := stringField(req, "cleared_by")
	if err != nil {
		return "", err
	}
	if clearedBy == "" {
		return "", status.Error(codes.InvalidArgument, "cleared_by is required")
	}
	return clearedBy, nil
}
