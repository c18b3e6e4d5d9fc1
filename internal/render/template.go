package render

// surfaceTemplate 是打印面的 HTML 模板。
// 每张标签占一页，页面尺寸与画布一致且无边距；打印时只保留 #print-surface。
const surfaceTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        @page {
            size: {{.Width}} {{.Height}};
            margin: 0;
        }
        html, body {
            margin: 0;
            padding: 0;
            background: white;
        }
        #print-surface .label {
            position: relative;
            width: {{.Width}};
            height: {{.Height}};
            overflow: hidden;
            background: white;
            break-after: page;
            page-break-after: always;
        }
        #print-surface .label:last-child {
            break-after: auto;
            page-break-after: auto;
        }
        .el {
            position: absolute;
            box-sizing: border-box;
            overflow: hidden;
            margin: 0;
        }
        .el-text {
            white-space: nowrap;
            line-height: 1.2;
        }
        .el-barcode {
            display: flex;
            flex-direction: column;
            align-items: center;
            justify-content: center;
        }
        .el-barcode img {
            width: 100%;
            flex: 1 1 auto;
            min-height: 0;
            object-fit: contain;
            image-rendering: pixelated;
        }
        .el-barcode .caption {
            font-size: 7pt;
            line-height: 1;
        }
        .el-barcode .barcode-error {
            font-size: 6pt;
            color: #b00020;
        }
        .el-label-value {
            display: flex;
            align-items: center;
            white-space: nowrap;
        }
        .el-label-value.vertical {
            flex-direction: column;
            align-items: flex-start;
        }
        .el-label-value .lv-label.bold {
            font-weight: bold;
        }
        .el-table table {
            width: 100%;
            height: 100%;
            border-collapse: collapse;
            table-layout: fixed;
        }
        .el-table.bordered td,
        .el-table.bordered th {
            border: 0.2mm solid black;
        }
        .el-table td,
        .el-table th {
            padding: 0 0.5mm;
            overflow: hidden;
            white-space: nowrap;
        }
        .unlinked {
            outline: 0.3mm dashed #d32f2f;
            color: #d32f2f;
        }
        @media print {
            * {
                -webkit-print-color-adjust: exact !important;
                print-color-adjust: exact !important;
            }
            body > :not(#print-surface) {
                display: none !important;
            }
        }
    </style>
</head>
<body>
    <div id="print-surface" data-surface="{{.ID}}">
        {{range .Labels}}
        <div class="label">
            {{range .}}
            {{if eq .Kind "text"}}
            <div id="{{.ID}}" class="el el-text{{if .Unlinked}} unlinked{{end}}" style="{{.Style}}">{{.Text}}</div>
            {{else if eq .Kind "barcode"}}
            <div id="{{.ID}}" class="el el-barcode{{if .Unlinked}} unlinked{{end}}" style="{{.Style}}">
                {{if .Image}}<img src="{{.Image}}" alt="{{.Text}}">{{else}}<span class="barcode-error">{{.Text}}</span>{{end}}
                {{if .Caption}}<span class="caption">{{.Caption}}</span>{{end}}
            </div>
            {{else if eq .Kind "line"}}
            <div id="{{.ID}}" class="el el-line" style="{{.Style}}"></div>
            {{else if eq .Kind "rectangle"}}
            <div id="{{.ID}}" class="el el-rectangle" style="{{.Style}}"></div>
            {{else if eq .Kind "label-value"}}
            <div id="{{.ID}}" class="el el-label-value{{if .Vertical}} vertical{{end}}{{if .Unlinked}} unlinked{{end}}" style="{{.Style}}">
                <span class="lv-label{{if .LabelBold}} bold{{end}}">{{.Label}}{{.Separator}}</span><span class="lv-value">{{.Text}}</span>
            </div>
            {{else if eq .Kind "table"}}
            <div id="{{.ID}}" class="el el-table{{if .Bordered}} bordered{{end}}" style="{{.Style}}">
                <table>
                    {{range .Rows}}
                    <tr>{{range .}}{{if .Header}}<th>{{.Text}}</th>{{else}}<td>{{.Text}}</td>{{end}}{{end}}</tr>
                    {{end}}
                </table>
            </div>
            {{end}}
            {{end}}
        </div>
        {{end}}
    </div>
</body>
</html>
`
