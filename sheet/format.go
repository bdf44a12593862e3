package sheet

// TextAlign, BorderStyle and NumberFormat enumerate the style values the grid
// understands. Absence of a cell entry in Document.Formats means "use the
// default format".

type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

type BorderStyle string

const (
	BorderNone   BorderStyle = "none"
	BorderAll    BorderStyle = "all"
	BorderOuter  BorderStyle = "outer"
	BorderTop    BorderStyle = "top"
	BorderBottom BorderStyle = "bottom"
)

type NumberFormat string

const (
	NumberGeneral  NumberFormat = "general"
	NumberNumber   NumberFormat = "number"
	NumberCurrency NumberFormat = "currency"
	NumberPercent  NumberFormat = "percent"
	NumberDate     NumberFormat = "date"
)

type CellFormat struct {
	Bold            bool         `json:"bold"`
	Italic          bool         `json:"italic"`
	Underline       bool         `json:"underline"`
	Strikethrough   bool         `json:"strikethrough"`
	WrapText        bool         `json:"wrapText"`
	FontSize        int          `json:"fontSize"`
	FontFamily      string       `json:"fontFamily"`
	TextAlign       TextAlign    `json:"textAlign"`
	BackgroundColor string       `json:"backgroundColor"`
	TextColor       string       `json:"textColor"`
	Border          BorderStyle  `json:"border"`
	NumberFormat    NumberFormat `json:"numberFormat"`
	Indent          int          `json:"indent"`
}

func DefaultFormat() CellFormat {
	return CellFormat{
		FontSize:     11,
		FontFamily:   "Calibri",
		TextAlign:    AlignLeft,
		Border:       BorderNone,
		NumberFormat: NumberGeneral,
	}
}

// FormatPatch merges individual style keys into a cell format; nil fields are
// left untouched.
type FormatPatch struct {
	Bold            *bool         `json:"bold,omitempty"`
	Italic          *bool         `json:"italic,omitempty"`
	Underline       *bool         `json:"underline,omitempty"`
	Strikethrough   *bool         `json:"strikethrough,omitempty"`
	WrapText        *bool         `json:"wrapText,omitempty"`
	FontSize        *int          `json:"fontSize,omitempty"`
	FontFamily      *string       `json:"fontFamily,omitempty"`
	TextAlign       *TextAlign    `json:"textAlign,omitempty"`
	BackgroundColor *string       `json:"backgroundColor,omitempty"`
	TextColor       *string       `json:"textColor,omitempty"`
	Border          *BorderStyle  `json:"border,omitempty"`
	NumberFormat    *NumberFormat `json:"numberFormat,omitempty"`
	Indent          *int          `json:"indent,omitempty"`
}

func (p FormatPatch) validate() error {
	if p.FontSize != nil && *p.FontSize <= 0 {
		return ErrInvalidFormat
	}
	if p.Indent != nil && *p.Indent < 0 {
		return ErrInvalidFormat
	}
	if p.TextAlign != nil {
		switch *p.TextAlign {
		case AlignLeft, AlignCenter, AlignRight:
		default:
			return ErrInvalidFormat
		}
	}
	if p.Border != nil {
		switch *p.Border {
		case BorderNone, BorderAll, BorderOuter, BorderTop, BorderBottom:
		default:
			return ErrInvalidFormat
		}
	}
	if p.NumberFormat != nil {
		switch *p.NumberFormat {
		case NumberGeneral, NumberNumber, NumberCurrency, NumberPercent, NumberDate:
		default:
			return ErrInvalidFormat
		}
	}
	return nil
}

func (p FormatPatch) apply(f *CellFormat) {
	if p.Bold != nil {
		f.Bold = *p.Bold
	}
	if p.Italic != nil {
		f.Italic = *p.Italic
	}
	if p.Underline != nil {
		f.Underline = *p.Underline
	}
	if p.Strikethrough != nil {
		f.Strikethrough = *p.Strikethrough
	}
	if p.WrapText != nil {
		f.WrapText = *p.WrapText
	}
	if p.FontSize != nil {
		f.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		f.FontFamily = *p.FontFamily
	}
	if p.TextAlign != nil {
		f.TextAlign = *p.TextAlign
	}
	if p.BackgroundColor != nil {
		f.BackgroundColor = *p.BackgroundColor
	}
	if p.TextColor != nil {
		f.TextColor = *p.TextColor
	}
	if p.Border != nil {
		f.Border = *p.Border
	}
	if p.NumberFormat != nil {
		f.NumberFormat = *p.NumberFormat
	}
	if p.Indent != nil {
		f.Indent = *p.Indent
	}
}
