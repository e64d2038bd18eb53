package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/terrenos-crm-backend/internal/platform/apierr"
)

var hexColor6 = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var setupOnce sync.Once

// Setup configures gin's validator: field errors are keyed by json name and
// the hexcolor6 tag checks #RRGGBB colors.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonName)
		_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
			return hexColor6.MatchString(fl.Field().String())
		})
	})
}

func jsonName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// IsHexColor reports whether s is a #RRGGBB color.
func IsHexColor(s string) bool { return hexColor6.MatchString(s) }

// BindJSON decodes the request body into obj. Validator failures become an
// apierr.ValidationError; malformed bodies a 400.
func BindJSON(c *gin.Context, obj any) error {
	Setup()
	return translate(c.ShouldBindJSON(obj))
}

// Bind picks the binding from the content type, for endpoints that accept
// both JSON and multipart bodies.
func Bind(c *gin.Context, obj any) error {
	Setup()
	return translate(c.ShouldBind(obj))
}

func BindQuery(c *gin.Context, obj any) error {
	Setup()
	return translate(c.ShouldBindQuery(obj))
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := apierr.NewValidation()
		for _, fe := range verrs {
			out.Add(fieldKey(fe), message(fe))
		}
		return out
	}
	if errors.Is(err, io.EOF) {
		return apierr.BadRequest("empty_body", "El cuerpo de la solicitud está vacío")
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apierr.Field(typeErr.Field, fmt.Sprintf("El campo %s tiene un formato inválido.", typeErr.Field))
	}
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return apierr.BadRequest("invalid_json", "JSON inválido")
	}
	return apierr.BadRequest("invalid_request", err.Error())
}

// fieldKey renders the namespace without the root struct, dotting slice
// indexes the way clients already expect ("embudos.0.id").
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	ns = strings.NewReplacer("[", ".", "]", "").Replace(ns)
	if ns == "" {
		return fe.Field()
	}
	return ns
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required", "required_if", "required_without":
		return fmt.Sprintf("El campo %s es obligatorio.", f)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("El campo %s no debe ser mayor que %s caracteres.", f, fe.Param())
		}
		return fmt.Sprintf("El campo %s no debe ser mayor que %s.", f, fe.Param())
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("El campo %s debe contener al menos %s caracteres.", f, fe.Param())
		}
		return fmt.Sprintf("El campo %s debe ser al menos %s.", f, fe.Param())
	case "lte":
		return fmt.Sprintf("El campo %s no debe ser mayor que %s.", f, fe.Param())
	case "email":
		return fmt.Sprintf("El campo %s debe ser una dirección de correo válida.", f)
	case "oneof":
		return fmt.Sprintf("El %s seleccionado no es válido.", f)
	case "uuid":
		return fmt.Sprintf("El campo %s debe ser un identificador válido.", f)
	case "hexcolor6":
		return fmt.Sprintf("El campo %s debe ser un color hexadecimal (#RRGGBB).", f)
	case "dive":
		return fmt.Sprintf("El campo %s no es válido.", f)
	default:
		return fmt.Sprintf("El campo %s no es válido.", f)
	}
}
