package scene

import (
	"fmt"

	"github.com/BaSui01/extrudeflow/types"
)

const extrusionConvexity = 50

// Extrusion returns a script that imports an SVG centred on the origin,
// extrudes it to thickness and scales the outline to width × height mm.
func Extrusion(svgPath string, thickness, width, height float64) (string, error) {
	if thickness <= 0 || width <= 0 || height <= 0 {
		return "", types.ValidationError(fmt.Sprintf(
			"extrusion size must be positive, got %gx%gx%g", width, height, thickness))
	}
	return fmt.Sprintf(`module import_image(file_name) {
  import(file = file_name, center = true);
}

thickness = %s;
convexity = %d;

resize([%s, %s, 0])
  linear_extrude(height = thickness, convexity = convexity, center = true, $fn = 1024) {
  import_image(%s);
}
`, num(thickness), extrusionConvexity, num(width), num(height), quote(svgPath)), nil
}
