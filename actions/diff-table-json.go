package actions

var jsonDiffTable = `{
  "schemaVersion": 1,
  "description": "diff table ${tableName} across two output locations",
  "connections": {
    "source": {
      "type": "${sourceType}",
      "logicalName": "${sourceEnv}",
      "data": ${sourceConnData}
    },
    "target": {
      "type": "${targetType}",
      "logicalName": "${targetEnv}",
      "data": ${targetConnData}
    }
  },
  "type": "${repeatTransform}",
  "repeatMetadata": {
    "sleepSeconds": ${sleepSeconds}
  },
  "transformGroups": {
    "diffTransform": {
      "type": "sequential",
      "steps": {
        "listManifestsNew": {
          "type": "${srcListStepType}",
          "data": {
            "logicalConnectionName": "source",
            "fileNamePrefix": "${manifestPrefix}",
            "fileNameRegexp": "\\.csv$"
          }
        },
        "latestManifestNew": {
          "type": "FilterRows",
          "data": {
            "readDataFromStep": "listManifestsNew",
            "filterType": "GetMax",
            "filterMetadata": "${srcManifestNameField}"
          }
        },
        "readManifestNew": {
          "type": "ManifestReader",
          "data": {
            "logicalConnectionName": "source",
            "readDataFromStep": "latestManifestNew",
            "inputFieldName4ManifestName": "${srcManifestNameField}",
            "outputFieldName4DataFileName": "#DataFileName"
          }
        },
        "readTableNew": {
          "type": "ParquetFileInput",
          "data": {
            "logicalConnectionName": "source",
            "readDataFromStep": "readManifestNew",
            "inputFieldName4FilePath": "#DataFileName",
            "tableName": "${tableName}"
          }
        },
        "sortNew": {
          "type": "SortRows",
          "data": {
            "readDataFromStep": "readTableNew",
            "keyFieldsCSV": "${sortKeysCsv}"
          }
        },
        "listManifestsOld": {
          "type": "${tgtListStepType}",
          "data": {
            "logicalConnectionName": "target",
            "fileNamePrefix": "${manifestPrefix}",
            "fileNameRegexp": "\\.csv$"
          }
        },
        "latestManifestOld": {
          "type": "FilterRows",
          "data": {
            "readDataFromStep": "listManifestsOld",
            "filterType": "GetMax",
            "filterMetadata": "${tgtManifestNameField}"
          }
        },
        "readManifestOld": {
          "type": "ManifestReader",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "latestManifestOld",
            "inputFieldName4ManifestName": "${tgtManifestNameField}",
            "outputFieldName4DataFileName": "#DataFileName"
          }
        },
        "readTableOld": {
          "type": "ParquetFileInput",
          "data": {
            "logicalConnectionName": "target",
            "readDataFromStep": "readManifestOld",
            "inputFieldName4FilePath": "#DataFileName",
            "tableName": "${tableName}"
          }
        },
        "sortOld": {
          "type": "SortRows",
          "data": {
            "readDataFromStep": "readTableOld",
            "keyFieldsCSV": "${sortKeysCsv}"
          }
        },
        "diff": {
          "type": "MergeDiff",
          "data": {
            "readOldDataFromStep": "sortOld",
            "readNewDataFromStep": "sortNew",
            "joinKeys": "${keyTokens}",
            "compareKeys": "${otherTokens}",
            "flagFieldName": "#diffStatus",
            "outputIdenticalRows": "${outputIdenticalRows}"
          }
        },
        "fieldMapper": {
          "type": "FieldMapper",
          "data": {
            "readDataFromStep": "diff"
          },
          "steps": [
            {
              "type": "RegexpReplace",
              "data": {
                "fieldName": "#diffStatus",
                "regexpMatch": "^${new}$",
                "regexpReplace": "NEW",
                "resultField": "#diffStatus",
                "propagateInput": "true"
              }
            },
            {
              "type": "RegexpReplace",
              "data": {
                "fieldName": "#diffStatus",
                "regexpMatch": "^${changed}$",
                "regexpReplace": "CHANGED",
                "resultField": "#diffStatus",
                "propagateInput": "true"
              }
            },
            {
              "type": "RegexpReplace",
              "data": {
                "fieldName": "#diffStatus",
                "regexpMatch": "^${deleted}$",
                "regexpReplace": "DELETED",
                "resultField": "#diffStatus",
                "propagateInput": "true"
              }
            },
            {
              "type": "RegexpReplace",
              "data": {
                "fieldName": "#diffStatus",
                "regexpMatch": "^${identical}$",
                "regexpReplace": "IDENTICAL",
                "resultField": "#diffStatus",
                "propagateInput": "true"
              }
            }
          ]
        },
        "stdout": {
          "type": "StdOutPassThrough",
          "data": {
            "readDataFromStep": "fieldMapper",
            "outputFieldsCsv": ${outputFieldsCsv},
            "abortAfterNumRecords": "${abortAfterNumRecords}"
          }
        }
      },
      "sequence": [
        "listManifestsNew",
        "latestManifestNew",
        "readManifestNew",
        "readTableNew",
        "sortNew",
        "listManifestsOld",
        "latestManifestOld",
        "readManifestOld",
        "readTableOld",
        "sortOld",
        "diff",
        "fieldMapper",
        "stdout"
      ]
    }
  },
  "sequence": [
    "diffTransform"
  ]
}`
